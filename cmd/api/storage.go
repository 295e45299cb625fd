package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justsurfingit/jobboard-gateway/internal/storage"
)

var passphrase string

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Encrypt or decrypt persisted values",
	Long: `Inspect values written by the session store.

The passphrase defaults to $STORAGE_PASSPHRASE, then to the built-in one.
Reads the value from the argument, or from stdin when none is given.`,
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [plaintext]",
	Short: "Encrypt a value the way persisted state is written",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := input(cmd, args)
		if err != nil {
			return err
		}
		out, err := cipherFor().Encrypt(in)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [ciphertext]",
	Short: "Decrypt a persisted value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := input(cmd, args)
		if err != nil {
			return err
		}
		out, err := cipherFor().Decrypt(strings.TrimSpace(in))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	storageCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "passphrase (default $STORAGE_PASSPHRASE)")
	storageCmd.AddCommand(encryptCmd, decryptCmd)
}

func cipherFor() *storage.Cipher {
	if passphrase != "" {
		return storage.NewCipher(passphrase)
	}
	return storage.NewCipher(os.Getenv("STORAGE_PASSPHRASE"))
}

func input(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
