package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"relay-core/pkg/authz"
	"relay-core/pkg/bip32"
	"relay-core/pkg/bip39"
	"relay-core/pkg/safe_random"
	"relay-core/pkg/storage"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Build and sign an off-chain authorization",
	Long: `Derives a signing key from a mnemonic, builds the freeform
authorization message for the given scope/action/fields, signs it and
writes a JSON payload ready to POST to /api/v1/relay/execute.`,
	Run: func(cmd *cobra.Command, args []string) {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		path, _ := cmd.Flags().GetString("path")
		scope, _ := cmd.Flags().GetString("scope")
		action, _ := cmd.Flags().GetString("action")
		subject, _ := cmd.Flags().GetString("subject")
		digest, _ := cmd.Flags().GetString("digest")
		contentFile, _ := cmd.Flags().GetString("file")
		uploadURL, _ := cmd.Flags().GetString("upload-url")
		uploadToken, _ := cmd.Flags().GetString("upload-token")
		outputFile, _ := cmd.Flags().GetString("output")

		// A content file supplies the digest; uploading it is optional.
		if contentFile != "" {
			data, err := os.ReadFile(contentFile)
			if err != nil {
				fmt.Printf("read content file failed: %v\n", err)
				os.Exit(1)
			}
			digest = storage.ContentDigest(data)
			if uploadURL != "" {
				uploader := storage.NewTurboUploader(uploadURL, uploadToken, 60*time.Second)
				uri, err := uploader.Upload(context.Background(), filepath.Base(contentFile), data)
				if err != nil {
					fmt.Printf("content upload failed: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("content uploaded: %s\n", uri)
			}
		}

		svc := bip39.NewMnemonicService()
		if !svc.ValidateMnemonic(mnemonic) {
			fmt.Println("invalid mnemonic")
			os.Exit(1)
		}
		wallet, err := bip32.NewMasterKeyFromSeed(svc.MnemonicToSeed(mnemonic, ""), nil)
		if err != nil {
			fmt.Printf("master key derivation failed: %v\n", err)
			os.Exit(1)
		}
		derived, err := wallet.DerivePath(path)
		if err != nil {
			fmt.Printf("path derivation failed: %v\n", err)
			os.Exit(1)
		}
		priv, err := derived.ECPrivKey()
		if err != nil {
			fmt.Printf("private key extraction failed: %v\n", err)
			os.Exit(1)
		}
		key := priv.ToECDSA()
		signer := crypto.PubkeyToAddress(key.PublicKey).Hex()

		nonce, err := safe_random.GenerateRandomHexString(16)
		if err != nil {
			fmt.Printf("nonce generation failed: %v\n", err)
			os.Exit(1)
		}

		schema := authz.Schema{
			Scheme:       authz.SchemeFreeform,
			Scope:        scope,
			Action:       action,
			SubjectField: "subject",
			DigestField:  "digest",
		}
		req := &authz.Request{
			Signer: signer,
			DeclaredFields: map[string]string{
				"subject": subject,
				"digest":  digest,
			},
			Nonce:     nonce,
			Timestamp: time.Now().UnixMilli(),
		}

		msg, err := authz.FreeformMessage(req, schema)
		if err != nil {
			fmt.Printf("message build failed: %v\n", err)
			os.Exit(1)
		}
		sig, err := authz.PersonalSign(key, msg)
		if err != nil {
			fmt.Printf("signing failed: %v\n", err)
			os.Exit(1)
		}

		payload := map[string]interface{}{
			"authorization": map[string]interface{}{
				"signer":    signer,
				"fields":    req.DeclaredFields,
				"nonce":     req.Nonce,
				"timestamp": req.Timestamp,
				"signature": "0x" + hex.EncodeToString(sig),
			},
			"schema": map[string]interface{}{
				"scheme":        "freeform",
				"scope":         scope,
				"action":        action,
				"subject_field": "subject",
				"digest_field":  "digest",
			},
		}
		out, _ := json.MarshalIndent(payload, "", "  ")
		if outputFile == "-" {
			fmt.Println(string(out))
			return
		}
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			fmt.Printf("write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("authorization written to %s\n", outputFile)
		fmt.Printf("signer: %s\n", signer)
		fmt.Printf("message: %s\n", msg)
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
	authorizeCmd.Flags().StringP("mnemonic", "m", "", "BIP-39 mnemonic of the authorizing key")
	authorizeCmd.Flags().StringP("path", "p", "m/44'/60'/0'/0/0", "BIP-32 derivation path")
	authorizeCmd.Flags().String("scope", "playlist", "authorization scope")
	authorizeCmd.Flags().String("action", "grant", "authorized action")
	authorizeCmd.Flags().String("subject", "", "subject the action applies to")
	authorizeCmd.Flags().String("digest", "", "content digest bound into the message")
	authorizeCmd.Flags().StringP("file", "f", "", "content file to digest (overrides --digest)")
	authorizeCmd.Flags().String("upload-url", "", "content store URL to upload the file to")
	authorizeCmd.Flags().String("upload-token", "", "content store auth token")
	authorizeCmd.Flags().StringP("output", "o", "authorization.json", "output file, - for stdout")
	authorizeCmd.MarkFlagRequired("mnemonic")
}
