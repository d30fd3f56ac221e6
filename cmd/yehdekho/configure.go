package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/iishyfishyy/yehdekho/internal/catalog"
	"github.com/iishyfishyy/yehdekho/internal/config"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/ui"
	"github.com/spf13/cobra"
)

// runConfigure walks the user through the settings and saves them
func runConfigure(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}

	for {
		showConfigSummary(cfg)

		selected, err := ui.ShowMenu("What would you like to change?", []string{
			"Catalog file",
			"Engine settings",
			"Poster lookups",
			"Save and exit",
			"Exit without saving",
		})
		if err != nil {
			return err
		}

		switch selected {
		case 0:
			if err := configureCatalog(cfg); err != nil {
				return err
			}
		case 1:
			if err := configureEngine(cfg); err != nil {
				return err
			}
		case 2:
			if err := configurePosters(cfg); err != nil {
				return err
			}
		case 3:
			if err := cfg.Validate(); err != nil {
				ui.ShowError(err.Error())
				continue
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			configPath, _ := config.GetConfigPath()
			ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", configPath))
			ui.ShowInfo("\nYou're all set! Try running: yehdekho index")
			return nil
		default:
			ui.ShowInfo("Cancelled")
			return nil
		}
	}
}

func showConfigSummary(cfg *config.Config) {
	ui.ShowSection("Current Configuration")

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	fmt.Print("  Catalog: ")
	if cfg.Catalog.Path != "" {
		green.Println(cfg.Catalog.Path)
	} else {
		gray.Println("Not configured")
	}

	fmt.Printf("  Engine:  top %d, max %d terms, cache %s\n", cfg.Engine.TopK, cfg.Engine.MaxTerms, cfg.Engine.Cache)

	fmt.Print("  Posters: ")
	switch {
	case !cfg.Poster.Enabled:
		gray.Println("Disabled")
	case cfg.Poster.APIKey == "":
		gray.Println("Enabled, no OMDb API key")
	default:
		green.Println("Enabled (OMDb)")
	}
	fmt.Println()
}

func configureCatalog(cfg *config.Config) error {
	path, err := ui.PromptInput("Path to your movie catalog (csv, json or yaml):", cfg.Catalog.Path, true)
	if err != nil {
		return err
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := os.Stat(path); err != nil {
		ui.ShowError(fmt.Sprintf("Cannot read %s: %v", path, err))
		return nil
	}

	ui.ShowInfo("Checking catalog...")
	movies, err := catalog.Load(path)
	if err != nil {
		ui.ShowError(fmt.Sprintf("Catalog could not be loaded: %v", err))
		return nil
	}

	cfg.Catalog.Path = path
	ui.ShowSuccess(fmt.Sprintf("Found %d movies", len(movies)))
	return nil
}

func configureEngine(cfg *config.Config) error {
	topK, err := promptInt("Recommendations per query:", cfg.Engine.TopK)
	if err != nil {
		return err
	}
	maxTerms, err := promptInt("Vocabulary size (max terms):", cfg.Engine.MaxTerms)
	if err != nil {
		return err
	}

	caches := []string{string(config.CacheSQLite), string(config.CacheMemory), string(config.CacheNone)}
	selected, err := ui.ShowMenu("Where should similarity matrices be cached?", caches)
	if err != nil {
		return err
	}

	cfg.Engine.TopK = topK
	cfg.Engine.MaxTerms = maxTerms
	cfg.Engine.Cache = config.CacheMode(caches[selected])
	return nil
}

func configurePosters(cfg *config.Config) error {
	enabled, err := ui.PromptYesNo("Show movie posters from OMDb?", cfg.Poster.Enabled)
	if err != nil {
		return err
	}
	cfg.Poster.Enabled = enabled
	if !enabled {
		return nil
	}

	key, err := ui.PromptSecret("OMDb API key (leave empty to keep the current one):")
	if err != nil {
		return err
	}
	if key != "" {
		cfg.Poster.APIKey = key
	}
	if cfg.Poster.APIKey == "" {
		ui.ShowWarning("No API key set; posters will be skipped until you add one")
		return nil
	}

	ui.ShowInfo("Verifying OMDb API key...")
	f, err := poster.NewOMDbFetcher(poster.OMDbConfig{
		APIKey:  cfg.Poster.APIKey,
		BaseURL: cfg.Poster.BaseURL,
		Timeout: cfg.Poster.Timeout,
	})
	if err != nil {
		return err
	}
	if _, err := f.Fetch(context.Background(), "Avatar"); err != nil {
		ui.ShowWarning(fmt.Sprintf("OMDb lookup failed: %v", err))
	} else {
		ui.ShowSuccess("OMDb is working!")
	}
	return nil
}

func promptInt(message string, current int) (int, error) {
	for {
		raw, err := ui.PromptInput(message, strconv.Itoa(current), true)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(raw)
		if err == nil && v > 0 {
			return v, nil
		}
		ui.ShowError("Please enter a positive number")
	}
}
