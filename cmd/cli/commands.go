package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var (
	keepMatch bool
)

func init() {
	archiveCmd.Flags().BoolVar(&keepMatch, "keep", false, "Keep the current match after archiving it")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(clearHistoryCmd)
	rootCmd.AddCommand(deleteEntryCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health")
	},
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show the active storage backend and its usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/storage")
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Show the match in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/match")
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the event log of the match in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/match/events")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived matches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/history")
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the completed match in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/history"
		if keepMatch {
			endpoint += "?keep=true"
		}
		return performRequest(http.MethodPost, endpoint)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the match history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/history/stats")
	},
}

var playerCmd = &cobra.Command{
	Use:   "player [name]",
	Short: "Show archived statistics for one player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players/"+url.PathEscape(args[0])+"/stats")
	},
}

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Delete every archived match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/history")
	},
}

var deleteEntryCmd = &cobra.Command{
	Use:   "delete-entry [historyId]",
	Short: "Delete one archived match (database storage only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodDelete, "/history/"+url.PathEscape(args[0]))
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics")
	},
}

func performRequest(method, endpoint string) error {
	target := host + endpoint
	if verbose {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		target += sep + "verbose=true"
	}
	fmt.Printf("Making %s request to %s\n", method, target)

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
