// Command cryptvolctl manages a cryptvol volume's configuration:
// initializing a new one, inspecting an existing one, and changing its
// password without touching any data block.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cryptvol/cryptvol"
	"github.com/cryptvol/cryptvol/internal/osfs"
	"github.com/cryptvol/cryptvol/internal/tlog"
	"github.com/cryptvol/cryptvol/internal/volumeconfig"
)

func main() {
	root := &cobra.Command{
		Use:   "cryptvolctl",
		Short: "Manage cryptvol encrypted volumes",
	}
	root.AddCommand(initCmd(), infoCmd(), passwdCmd())

	if err := root.Execute(); err != nil {
		tlog.Fatal("%v", err)
	}
}

func confPath(backingDir string) string {
	return filepath.Join(backingDir, "cryptvol.conf")
}

func promptPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("interactive password prompting requires a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}

func initCmd() *cobra.Command {
	var cipherName string
	var keyBits int
	var blockSize int

	cmd := &cobra.Command{
		Use:   "init <backing-dir>",
		Short: "Initialize a new encrypted volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			base, err := osfs.New(dir)
			if err != nil {
				return err
			}
			if _, err := cryptvol.Init(base, confPath(dir), password, cipherName, keyBits, blockSize); err != nil {
				return err
			}
			tlog.Info("volume initialized at %s", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&cipherName, "cipher", "aes-ctr", "content cipher family")
	cmd.Flags().IntVar(&keyBits, "key-bits", 256, "content key size in bits")
	cmd.Flags().IntVar(&blockSize, "block-size", 4096, "plaintext block size in bytes")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <backing-dir>",
		Short: "Show a volume's configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := volumeconfig.Load(confPath(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("cipher:        %s\n", conf.CipherDescriptor)
			fmt.Printf("name codec:    %s\n", conf.NameDescriptor)
			fmt.Printf("key size:      %d bits\n", conf.KeySizeBits)
			fmt.Printf("block size:    %d bytes\n", conf.BlockSizeBytes)
			fmt.Printf("block MAC:     %d bytes (rand prefix %d bytes)\n", conf.BlockMACBytes, conf.BlockMACRandBytes)
			fmt.Printf("unique IV:     %v\n", conf.UniqueIV)
			fmt.Printf("chained names: %v\n", conf.ChainedNameIV)
			fmt.Printf("kdf:           %s\n", conf.KDF.Algorithm)
			return nil
		},
	}
}

func passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <backing-dir>",
		Short: "Change a volume's password without touching any data block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			path := confPath(dir)

			oldPassword, err := promptPassword("Current password: ")
			if err != nil {
				return err
			}
			newPassword, err := promptPassword("New password: ")
			if err != nil {
				return err
			}

			if err := cryptvol.Rewrap(path, oldPassword, newPassword); err != nil {
				return err
			}
			tlog.Info("password changed for %s", dir)
			return nil
		},
	}
}
