package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/flexprice/billingcore/scripts/internal"
	"github.com/joho/godotenv"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "seed-catalog",
		Description: "Load plans, items and coupons from a JSON file into postgres",
		Run:         internal.SeedCatalog,
	},
	{
		Name:        "upcoming-invoice",
		Description: "Print the upcoming invoice of a subscription as JSON",
		Run:         internal.PrintUpcomingInvoice,
	},
}

func main() {
	var (
		listCommands   bool
		cmdName        string
		tenantID       string
		catalogFile    string
		subscriptionID string
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&tenantID, "tenant-id", "", "Tenant ID for operations")
	flag.StringVar(&catalogFile, "catalog-file", "", "Path to catalog JSON file")
	flag.StringVar(&subscriptionID, "subscription-id", "", "Subscription ID for operations")

	flag.Parse()

	// BILLINGCORE_* settings may live in a local .env
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	// Set command-specific environment variables
	if tenantID != "" {
		os.Setenv("TENANT_ID", tenantID)
	}
	if catalogFile != "" {
		os.Setenv("CATALOG_FILE", catalogFile)
	}
	if subscriptionID != "" {
		os.Setenv("SUBSCRIPTION_ID", subscriptionID)
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Command %s failed: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}
