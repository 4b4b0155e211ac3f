package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"relay-core/pkg/quorum"
)

var quorumCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Probe the signing quorum",
	Long: `Checks the quorum service's health endpoint and optionally runs a
test signing round over a throwaway digest.`,
	Run: func(cmd *cobra.Command, args []string) {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		publicKey, _ := cmd.Flags().GetString("public-key")
		testSign, _ := cmd.Flags().GetBool("sign")

		signer := quorum.NewHTTPSigner(endpoint, 30*time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := signer.Health(ctx); err != nil {
			fmt.Printf("quorum unhealthy: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("quorum healthy")

		if !testSign {
			return
		}
		digest := sha256.Sum256([]byte(fmt.Sprintf("probe-%d", time.Now().UnixNano())))
		fmt.Printf("requesting signature over %s\n", hex.EncodeToString(digest[:]))

		start := time.Now()
		sig, err := signer.Sign(ctx, digest, publicKey, "probe")
		if err != nil {
			fmt.Printf("signing failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("signature: 0x%s\n", hex.EncodeToString(sig.Bytes65()))
		fmt.Printf("round trip: %s\n", time.Since(start))
	},
}

func init() {
	rootCmd.AddCommand(quorumCmd)
	quorumCmd.Flags().StringP("endpoint", "e", "http://localhost:9000", "quorum service base URL")
	quorumCmd.Flags().StringP("public-key", "k", "", "key identifier to sign with")
	quorumCmd.Flags().Bool("sign", false, "run a test signing round")
}
