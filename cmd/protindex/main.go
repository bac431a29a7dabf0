package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/protindex/cmd/protindex/internal"
	"github.com/DreamCats/protindex/internal/config"
)

// main parses global flags, loads configuration and dispatches the subcommand
func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	configPath := ""
	dataDir := ""
	args := os.Args[1:]

	validSubcommands := map[string]bool{
		"fetch":    true,
		"index":    true,
		"search":   true,
		"stats":    true,
		"cigar":    true,
		"ordinate": true,
	}

	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	// Parse global flags (before subcommand)
	globalFlags := args
	if subcommandIndex >= 0 {
		globalFlags = args[:subcommandIndex]
	}
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch flag {
		case "-config", "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case "-data", "--data":
			if i+1 < len(globalFlags) {
				dataDir = globalFlags[i+1]
				i++
			}
		case "-h", "-help", "--help":
			internal.PrintUsage()
			os.Exit(0)
		case "-v", "-version", "--version":
			fmt.Printf("protindex version %s\n", internal.Version)
			os.Exit(0)
		default:
			if strings.HasPrefix(flag, "-") {
				fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
				internal.PrintUsage()
				os.Exit(1)
			}
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	// cigar is pure string work and needs no configuration
	if subcommand == "cigar" {
		handleCigar(subcommandArgs)
		return
	}

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		if config.IsConfigNotFound(err) {
			if subcommand == "fetch" || subcommand == "index" {
				if notFoundErr, ok := err.(*config.ConfigNotFoundError); ok {
					created, createErr := config.WriteDefaultTemplate(notFoundErr.RequestedPath)
					if createErr != nil {
						fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
						fmt.Fprintf(os.Stderr, "Also failed to create default config at %s: %v\n\n", notFoundErr.RequestedPath, createErr)
						internal.PrintConfigExample()
						os.Exit(1)
					}
					if created {
						fmt.Fprintf(os.Stderr, "Created default config at %s\n", notFoundErr.RequestedPath)
					}
					fmt.Fprintf(os.Stderr, "Please set dataset.url and embedding.endpoint in the config file and rerun `protindex %s`.\n", subcommand)
					os.Exit(1)
				}
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			internal.PrintConfigExample()
			os.Exit(1)
		}
		log.Fatalf("Failed to load config: %v\n", err)
	}

	if dataDir != "" {
		cfg.Dataset.Dir = config.ExpandPath(dataDir)
	}

	datasetDir, err := internal.ResolveDatasetDir(cfg.Dataset.Dir)
	if err != nil {
		log.Fatalf("Failed to resolve dataset directory: %v\n", err)
	}
	cfg.Dataset.Dir = datasetDir

	if cfg.Database.Path == "" {
		dbPath, err := internal.DefaultDBPath(datasetDir)
		if err != nil {
			log.Fatalf("Failed to determine database path: %v\n", err)
		}
		cfg.Database.Path = dbPath
	}

	if err := internal.SetupLogging(subcommand, datasetDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}

	switch subcommand {
	case "fetch":
		handleFetch(cfg, subcommandArgs)
	case "index":
		handleIndex(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	case "ordinate":
		handleOrdinate(cfg, subcommandArgs)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		internal.PrintUsage()
		os.Exit(1)
	}
}
