package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "tg-uploader",
		Short: "tg-uploader CLI - relay media URLs into Telegram",
		Long:  `A command-line interface for the media relay server: send a URL to a chat and inspect relay history.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [chat] [url]",
	Short: "Relay a media URL into a chat",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		caption, _ := cmd.Flags().GetString("caption")
		parseMode, _ := cmd.Flags().GetString("parse-mode")
		kind, _ := cmd.Flags().GetString("kind")

		payload := map[string]string{
			"chat_id":  args[0],
			"file_url": args[1],
		}
		if caption != "" {
			payload["caption"] = caption
		}
		if parseMode != "" {
			payload["parse_mode"] = parseMode
		}
		if kind != "" {
			payload["kind"] = kind
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/upload", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Relayed successfully!\n")
		fmt.Printf("Message ID: %v\n", result["message_id"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List relay history",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/uploads"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var uploads []map[string]interface{}
		json.Unmarshal(body, &uploads)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHAT\tURL\tKIND\tSTATUS\tMESSAGE")
		for _, u := range uploads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
				truncate(stringField(u, "id"), 8),
				stringField(u, "chat_id"),
				truncate(stringField(u, "source_url"), 40),
				stringField(u, "kind"),
				stringField(u, "status"),
				u["message_id"])
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one relay record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/uploads/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var pretty bytes.Buffer
		json.Indent(&pretty, body, "", "  ")
		fmt.Println(pretty.String())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show relay statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/uploads/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TOTAL\tPROCESSING\tCOMPLETED\tFAILED")
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n",
			stats["total"], stats["processing"], stats["completed"], stats["failed"])
		w.Flush()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the server is up",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/health")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server unreachable: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		fmt.Println(string(body))
	},
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func main() {
	sendCmd.Flags().String("caption", "", "Caption for the uploaded media")
	sendCmd.Flags().String("parse-mode", "", "Caption format mode (HTML or Markdown)")
	sendCmd.Flags().String("kind", "", "Media kind (video or photo)")
	listCmd.Flags().String("status", "", "Filter by status")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
