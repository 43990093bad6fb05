package cli

import (
	"fmt"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/addonreg/addonreg/internal/fetch"
	"github.com/addonreg/addonreg/internal/registry"
	"github.com/spf13/cobra"
)

var (
	regIndex       string
	regSimulate    bool
	regHash        string
	regName        string
	regTitle       string
	regVersion     string
	regCategory    string
	regAuthor      string
	regDescription string
	regLocation    string
	regWikiURL     string
	regTrackerURL  string
	regWarning     string
	regHostVersion string
	regPeers       []string
)

func init() {
	registryCmd.PersistentFlags().StringVar(&regIndex, "index", "addons.json", "Registry index file to maintain")

	f := registryAddCmd.Flags()
	f.StringVar(&regHash, "hash", addon.AlgSHA256, "Digest algorithm (sha256, blake2b)")
	f.StringVar(&regName, "name", "", "Catalog key (default: archive file name without extension)")
	f.StringVar(&regTitle, "title", "", "Display name (default: the catalog key)")
	f.StringVar(&regVersion, "version", "", "Addon version, e.g. 1.2.0")
	f.StringVar(&regCategory, "category", "", "Addon category")
	f.StringVar(&regAuthor, "author", "", "Addon author")
	f.StringVar(&regDescription, "description", "", "Short description")
	f.StringVar(&regLocation, "location", "", "Where the addon appears in the host UI")
	f.StringVar(&regWikiURL, "wiki-url", "", "Documentation URL")
	f.StringVar(&regTrackerURL, "tracker-url", "", "Issue tracker URL")
	f.StringVar(&regWarning, "warning", "", "Warning shown to users")
	f.StringVar(&regHostVersion, "host-version", "", "Minimum host version, e.g. 2.80.0")
	f.StringSliceVar(&regPeers, "peers", nil, "Other catalog entries shipped in the same archive")
	f.BoolVar(&regSimulate, "simulate", false, "Print the result without writing the index")
	registryRemoveCmd.Flags().BoolVar(&regSimulate, "simulate", false, "Print the result without writing the index")

	registryCmd.AddCommand(registryAddCmd)
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryRemoveCmd)
	rootCmd.AddCommand(registryCmd)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Maintain a registry index file",
	Long: `Tools for registry maintainers: add archives to an index with their computed
digest, list the index, or remove entries. The index is the file registry
sources serve.`,
}

var registryAddCmd = &cobra.Command{
	Use:   "add <url|path>...",
	Short: "Download archives and add them to the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRegistryAdd,
}

func runRegistryAdd(cmd *cobra.Command, args []string) error {
	if regName != "" && len(args) > 1 {
		return fmt.Errorf("--name can only be used with a single archive")
	}
	version, err := addon.ParseVersion(regVersion)
	if err != nil {
		return fmt.Errorf("invalid --version: %w", err)
	}
	info := addon.Info{
		Name:        regTitle,
		Version:     version,
		Category:    regCategory,
		Author:      regAuthor,
		Description: regDescription,
		Location:    regLocation,
		WikiURL:     regWikiURL,
		TrackerURL:  regTrackerURL,
		Warning:     regWarning,
	}
	if regHostVersion != "" {
		if info.HostVersion, err = addon.ParseVersion(regHostVersion); err != nil {
			return fmt.Errorf("invalid --host-version: %w", err)
		}
	}

	idx, err := registry.LoadIndex(regIndex)
	if err != nil {
		return err
	}

	timeout := addon.DefaultTimeoutSeconds
	deadline := 0.0
	client := fetch.New(addon.Network{Timeout: &timeout, Deadline: &deadline}, fetchOptions()...)
	out := cmd.OutOrStdout()

	for _, loc := range args {
		name := regName
		if name == "" {
			name = registry.NameFromLocation(loc)
		}
		opts := registry.AddOptions{Name: name, Algorithm: regHash, Info: info, Peers: regPeers}
		if opts.Info.Name == "" {
			opts.Info.Name = name
		}
		start := time.Now()
		key, rec, err := idx.Add(cmd.Context(), client, loc, opts)
		if err != nil {
			return err
		}
		kind := "archive"
		if rec.File {
			kind = "file"
		}
		fmt.Fprintf(out, "%s: %s %s (%s, %s)\n", key, rec.Info.Version, kind, loc, time.Since(start).Round(time.Millisecond))
	}

	return writeIndex(cmd, idx)
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List index entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := registry.LoadIndex(regIndex)
		if err != nil {
			return err
		}
		for _, line := range idx.List() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <name>...",
	Short: "Remove entries from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := registry.LoadIndex(regIndex)
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := idx.Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
		}
		return writeIndex(cmd, idx)
	},
}

func writeIndex(cmd *cobra.Command, idx *registry.Index) error {
	if regSimulate {
		data, err := idx.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := idx.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", idx.Path())
	return nil
}
