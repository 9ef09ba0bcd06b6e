// liqkcrypt encrypts files at rest with hybrid public-key encryption.
// It is a standalone tool and shares no runtime state with the gateway.
package main

import (
	"fmt"
	"os"

	"github.com/liqk/gate/common/encryption"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var pubKey, privKey string

	root := &cobra.Command{
		Use:           "liqkcrypt",
		Short:         "File encryption with age X25519 hybrid encryption",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&pubKey, "pk", "liqkcrypt.pub", "path to the public key")
	root.PersistentFlags().StringVar(&privKey, "sk", "liqkcrypt.key", "path to the passphrase-encrypted private key")

	root.AddCommand(newKeygenCmd(&pubKey, &privKey))
	root.AddCommand(newEncryptCmd(&pubKey, &privKey))
	root.AddCommand(newDecryptCmd(&pubKey, &privKey))

	return root
}

func newKeygenCmd(pubKey, privKey *string) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher := encryption.NewFileCipher(*pubKey, *privKey)
			if cipher.IsConfigured() {
				return fmt.Errorf("key files already exist, refusing to overwrite")
			}

			passphrase, err := promptPassphrase(true)
			if err != nil {
				return err
			}

			if err := cipher.Keygen(passphrase); err != nil {
				return err
			}

			fmt.Println("Key pair generated")
			fmt.Println("  Public key: ", *pubKey)
			fmt.Println("  Private key:", *privKey)
			return nil
		},
	}
}

func newEncryptCmd(pubKey, privKey *string) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file to the public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cipher := encryption.NewFileCipher(*pubKey, *privKey)
			if err := cipher.EncryptFile(input, output); err != nil {
				return err
			}
			fmt.Println("File encrypted")
			fmt.Println("  Input: ", input)
			fmt.Println("  Output:", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input file")
	cmd.Flags().StringVar(&output, "output", "", "output file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newDecryptCmd(pubKey, privKey *string) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a file with the private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := promptPassphrase(false)
			if err != nil {
				return err
			}

			cipher := encryption.NewFileCipher(*pubKey, *privKey)
			if err := cipher.DecryptFile(passphrase, input, output); err != nil {
				return err
			}
			fmt.Println("File decrypted")
			fmt.Println("  Input: ", input)
			fmt.Println("  Output:", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input file")
	cmd.Flags().StringVar(&output, "output", "", "output file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

func promptPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase confirmation: %w", err)
		}
		if string(first) != string(second) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(first), nil
}
