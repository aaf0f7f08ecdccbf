// Shieldpool - nullifier tree inspection and maintenance CLI
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/colorfulnotion/shieldpool/imt"
	"github.com/colorfulnotion/shieldpool/logger"
	"github.com/colorfulnotion/shieldpool/pool"
	"github.com/colorfulnotion/shieldpool/storage"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "shieldpool",
		Short: "Indexed nullifier tree tool",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		dbPath    string
		treeID    string
		height    uint8
		authority string
	)

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a genesis nullifier tree",
		Run: func(cmd *cobra.Command, args []string) {
			logger.SetLevel("info")

			var auth [32]byte
			if authority != "" {
				raw, err := hexutil.Decode(authority)
				if err != nil || len(raw) != 32 {
					fmt.Printf("invalid --authority, want 32 hex bytes: %v\n", err)
					os.Exit(1)
				}
				copy(auth[:], raw)
			}

			store, err := storage.Open(dbPath)
			if err != nil {
				fmt.Printf("Failed to open store %s: %v\n", dbPath, err)
				os.Exit(1)
			}
			defer store.Close()

			p := pool.New(store)
			if err := p.CreateTree(treeID, auth, height); err != nil {
				fmt.Printf("Failed to initialize tree: %v\n", err)
				os.Exit(1)
			}

			tree, err := p.TreeState(treeID)
			if err != nil {
				fmt.Printf("Failed to read tree back: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Initialized tree %q\n", treeID)
			fmt.Printf("  Height:       %d (capacity %d)\n", tree.Height, tree.Capacity())
			fmt.Printf("  Genesis root: %s\n", tree.Root.Hex())
		},
	}
	initCmd.Flags().StringVar(&dbPath, "db", "shieldpool-db", "LevelDB path")
	initCmd.Flags().StringVar(&treeID, "tree", "default", "tree identifier")
	initCmd.Flags().Uint8Var(&height, "height", imt.DefaultHeight, "tree height")
	initCmd.Flags().StringVar(&authority, "authority", "", "hex authority key (32 bytes)")

	var inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Print the persisted tree state",
		Run: func(cmd *cobra.Command, args []string) {
			logger.SetLevel("warn")

			store, err := storage.Open(dbPath)
			if err != nil {
				fmt.Printf("Failed to open store %s: %v\n", dbPath, err)
				os.Exit(1)
			}
			defer store.Close()

			p := pool.New(store)
			tree, err := p.TreeState(treeID)
			if err != nil {
				fmt.Printf("Failed to load tree %q: %v\n", treeID, err)
				os.Exit(1)
			}

			fmt.Printf("Tree %q\n", treeID)
			fmt.Printf("  Root:                    %s\n", tree.Root.Hex())
			fmt.Printf("  Height:                  %d\n", tree.Height)
			fmt.Printf("  Leaves:                  %d / %d\n", tree.NextIndex, tree.Capacity())
			fmt.Printf("  Pending reservations:    %d\n", tree.PendingCount())
			fmt.Printf("  Current epoch:           %d\n", tree.CurrentEpoch)
			fmt.Printf("  Earliest provable epoch: %d\n", tree.EarliestProvableEpoch)
			fmt.Printf("  Last finalized index:    %d\n", tree.LastFinalizedIndex)
			fmt.Printf("  Last epoch slot:         %d\n", tree.LastEpochSlot)
			fmt.Printf("  Authority:               %s\n", hexutil.Encode(tree.Authority[:]))
			fmt.Printf("  Subtrees:\n")
			for i, s := range tree.Subtrees {
				fmt.Printf("    [%2d] %s\n", i, s.Hex())
			}
		},
	}
	inspectCmd.Flags().StringVar(&dbPath, "db", "shieldpool-db", "LevelDB path")
	inspectCmd.Flags().StringVar(&treeID, "tree", "default", "tree identifier")

	var zeroHashCmd = &cobra.Command{
		Use:   "zero-hashes",
		Short: "Print the empty-subtree hash table for a given height",
		Run: func(cmd *cobra.Command, args []string) {
			zeros, err := imt.BuildZeroHashes(imt.NewPoseidon2Hasher(), height)
			if err != nil {
				fmt.Printf("Failed to build zero hashes: %v\n", err)
				os.Exit(1)
			}
			for i, z := range zeros {
				fmt.Printf("[%2d] %s\n", i, z.Hex())
			}
		},
	}
	zeroHashCmd.Flags().Uint8Var(&height, "height", imt.DefaultHeight, "tree height")

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("shieldpool %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}

	rootCmd.AddCommand(initCmd, inspectCmd, zeroHashCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
