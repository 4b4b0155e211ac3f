package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Submit a relay invocation to a running server",
	Long: `Reads an invocation payload (as produced by "authorize", plus the
call section) and POSTs it to the relay server's execute endpoint.`,
	Run: func(cmd *cobra.Command, args []string) {
		inputFile, _ := cmd.Flags().GetString("input")
		serverURL, _ := cmd.Flags().GetString("server")
		endpoint, _ := cmd.Flags().GetString("endpoint")

		data, err := os.ReadFile(inputFile)
		if err != nil {
			fmt.Printf("read input failed: %v\n", err)
			os.Exit(1)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			fmt.Printf("input is not valid JSON: %v\n", err)
			os.Exit(1)
		}

		client := resty.New().SetTimeout(90 * time.Second)
		var result map[string]interface{}
		resp, err := client.R().
			SetBody(payload).
			SetResult(&result).
			Post(serverURL + endpoint)
		if err != nil {
			fmt.Printf("request failed: %v\n", err)
			os.Exit(1)
		}
		if resp.IsError() {
			fmt.Printf("server returned %s\n", resp.Status())
			os.Exit(1)
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(executeCmd)
	executeCmd.Flags().StringP("input", "i", "invocation.json", "invocation payload file")
	executeCmd.Flags().StringP("server", "s", "http://localhost:8080", "relay server base URL")
	executeCmd.Flags().StringP("endpoint", "e", "/api/v1/relay/execute", "endpoint to post to")
}
