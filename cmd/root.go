/*
 * stream-fetch is a project to resolve and download HLS video streams.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lucasduport/stream-fetch/pkg/config"
	"github.com/lucasduport/stream-fetch/pkg/download"
	"github.com/lucasduport/stream-fetch/pkg/fetch"
	"github.com/lucasduport/stream-fetch/pkg/resolver"
	"github.com/lucasduport/stream-fetch/pkg/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stream-fetch",
	Short: "Download and reassemble HLS video streams",
	Long: `stream-fetch resolves an HLS manifest, retrieves the AES-128
decryption key when the stream is encrypted, and downloads all media
segments into a single playable file.

It supports:
- AES-128-CBC encrypted and clear streams
- Provider auth headers (cookie, referer, user-agent) on every request
- Bounded retries per segment and an overall session deadline
- Optional concurrent fetching with strictly ordered output`,

	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("[stream-fetch] Starting download...")

		rawURL := viper.GetString("url")
		if rawURL == "" && len(args) > 0 {
			rawURL = args[0]
		}
		if rawURL == "" {
			log.Fatal("[stream-fetch] No URL given, use --url or pass it as the first argument")
		}

		conf := config.DownloadConfig{
			ManifestURL: rawURL,
			OutputPath:  viper.GetString("output"),
			Workers:     viper.GetInt("workers"),
			Timeout:     viper.GetDuration("session-timeout"),
			HTTPTimeout: viper.GetDuration("http-timeout"),
			Auth: config.AuthContext{
				UserAgent: viper.GetString("user-agent"),
				Cookie:    viper.GetString("cookie"),
				Referer:   viper.GetString("referer"),
				Origin:    viper.GetString("origin"),
			},
			Retry: config.RetryPolicy{
				MaxAttempts: viper.GetInt("retry-attempts"),
				Wait:        viper.GetDuration("retry-wait"),
			},
		}

		if err := run(conf); err != nil {
			log.Fatalf("[stream-fetch] %v", utils.ErrorWithLocation(err))
		}
	},
}

// run wires resolver, HTTP layer and orchestrator together for one download.
func run(conf config.DownloadConfig) error {
	ctx := context.Background()
	if conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conf.Timeout)
		defer cancel()
	}

	// The page-scraping resolvers are external collaborators; out of the
	// box only already-direct playlist URLs are recognized.
	manifestURL, ok, err := resolver.Chain{resolver.DirectResolver{}}.Resolve(ctx, conf.ManifestURL)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no manifest URL could be resolved from %q", conf.ManifestURL)
	}

	client := fetch.NewClient(conf.Auth, conf.Retry, conf.HTTPTimeout)

	manifest, parsed, err := client.ResolveStream(ctx, manifestURL)
	if err != nil {
		return err
	}
	log.Printf("[stream-fetch] Manifest %s: %d segments, encrypted=%v",
		manifest.URL, parsed.Total(), parsed.Encryption != nil)

	out, err := os.Create(conf.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	cfg := download.DefaultConfig()
	cfg.Workers = conf.Workers

	result, err := download.New(client, client, cfg).Run(ctx, parsed, out)
	if err != nil {
		// Partial output is kept on abort so the user can inspect it.
		var tooMany *download.TooManyFailuresError
		if errors.As(err, &tooMany) {
			log.Printf("[stream-fetch] Aborted, partial output retained at %s", conf.OutputPath)
		}
		return err
	}

	log.Printf("[stream-fetch] Done: %d/%d segments, %d bytes written to %s (session %s)",
		result.Succeeded, result.Total, result.Bytes, conf.OutputPath, result.SessionID)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.stream-fetch.yaml)")

	// Basic configuration flags
	rootCmd.Flags().StringP("url", "u", "", "Manifest URL, or a page URL a resolver can handle")
	rootCmd.Flags().StringP("output", "o", "stream.ts", "Output file for the assembled stream")
	rootCmd.Flags().Int("workers", 1, "Concurrent segment workers (1 = sequential)")
	rootCmd.Flags().Duration("session-timeout", 0, "Overall session deadline (0 = none)")
	rootCmd.Flags().Duration("http-timeout", config.DefaultHTTPTimeout, "Per-request HTTP timeout")

	// Upstream auth flags, passed through on every request
	rootCmd.Flags().String("user-agent", "", "User-Agent header (defaults to a desktop browser)")
	rootCmd.Flags().String("cookie", "", "Cookie header for authenticated content")
	rootCmd.Flags().String("referer", "", "Referer header for manifest and key requests")
	rootCmd.Flags().String("origin", "", "Origin header, when the provider checks it")

	// Segment retry flags
	rootCmd.Flags().Int("retry-attempts", 3, "Attempts per segment, including the first")
	rootCmd.Flags().Duration("retry-wait", time.Second, "Fixed wait between segment retries")

	// Bind all flags to viper
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal("Error binding PFlags to viper")
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory and current directory
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".stream-fetch")
	}

	// Replace hyphens with underscores in environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read environment variables
	viper.AutomaticEnv()

	// Read in config file if found
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
