package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chains-project/elfscope/elfscope/relocreader"
	"github.com/chains-project/elfscope/elfscope/sectionnav"
	"github.com/chains-project/elfscope/elfscope/symreader"
)

type app struct {
	config RuntimeConfig
	out    io.Writer
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("elfscope: %v", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	var configPath string
	var flags RuntimeConfig

	cmd := &cobra.Command{
		Use:           "elfscope",
		Short:         "Inspect ELF32 object files",
		Long:          `elfscope lists the sections, symbols and relocations of ELF32 object files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetOutput(cmd.ErrOrStderr())
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})

			config, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debug") {
				config.Debug = flags.Debug
			}
			if cmd.Flags().Changed("no-color") {
				config.NoColor = flags.NoColor
			}
			if cmd.Flags().Changed("output") {
				config.Output = flags.Output
			}
			if err := config.validate(); err != nil {
				return err
			}
			config.apply()

			a.config = config
			a.out = cmd.OutOrStdout()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&flags.Output, "output", outputText, "Output format: 'text' or 'json'")

	cmd.AddCommand(
		a.fileCommand("header <file>", "Print the ELF header and program headers", a.runHeader),
		a.fileCommand("sections <file>", "Print section names, offsets, sizes and types", a.runSections),
		a.fileCommand("symbols <file>", "Print the static symbol table", a.runSymbols),
		a.fileCommand("relocs <file>", "Print relocation tables resolved against the dynamic symbols", a.runRelocations),
		a.fileCommand("dupes <file>", "Find sections with identical contents", a.runDuplicates),
		a.fileCommand("all <file>", "Print every report, collecting all failures", a.runAll),
		a.lookupCommand(),
		a.menuCommand(),
	)
	return cmd
}

// fileCommand wraps run so that it receives a mapped session for the single
// file argument.
func (a *app) fileCommand(use, short string, run func(*session) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return run(s)
		},
	}
}

func (a *app) lookupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <file> <address>...",
		Short: "Resolve addresses to the symbols that contain them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses := make([]uint64, 0, len(args)-1)
			for _, arg := range args[1:] {
				addr, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					return fmt.Errorf("parsing address %q: %w", arg, err)
				}
				addresses = append(addresses, addr)
			}

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return a.runLookup(s, addresses)
		},
	}
}

func (a *app) menuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Run the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newMenu(a, cmd.InOrStdin()).run()
		},
	}
}

func (a *app) render(v any, text func(io.Writer)) error {
	if a.config.Output == outputJSON {
		return writeJSON(a.out, v)
	}
	text(a.out)
	return nil
}

func (a *app) runHeader(s *session) error {
	r, err := newHeaderReport(s)
	if err != nil {
		return err
	}
	return a.render(r, func(w io.Writer) { printHeader(w, s.img, r) })
}

func (a *app) runSections(s *session) error {
	entries, err := sectionnav.List(s.hdr, s.img)
	if err != nil {
		return err
	}
	return a.render(entries, func(w io.Writer) { printSections(w, entries) })
}

func (a *app) runSymbols(s *session) error {
	entries, err := symreader.List(s.hdr, s.img)
	if err != nil {
		return err
	}
	return a.render(entries, func(w io.Writer) { printSymbols(w, entries) })
}

func (a *app) runRelocations(s *session) error {
	groups, err := relocreader.List(s.hdr, s.img)
	if err != nil {
		return err
	}
	return a.render(groups, func(w io.Writer) { printRelocations(w, groups) })
}

func (a *app) runDuplicates(s *session) error {
	fps, err := sectionnav.Fingerprints(s.hdr, s.img)
	if err != nil {
		return err
	}
	groups := sectionnav.Duplicates(fps)
	return a.render(groups, func(w io.Writer) { printDuplicates(w, groups) })
}

func (a *app) runLookup(s *session, addresses []uint64) error {
	entries, err := symreader.List(s.hdr, s.img)
	if err != nil {
		return err
	}
	resolver := symreader.NewResolver(entries)
	logrus.Debugf("cached %d symbols for %s", resolver.Len(), s.path)

	names := resolver.ResolveAll(addresses)
	report := make(map[string]string, len(addresses))
	for i, addr := range addresses {
		report[fmt.Sprintf("0x%x", addr)] = names[i]
	}
	return a.render(report, func(w io.Writer) { printLookup(w, addresses, names) })
}

type fullReport struct {
	Header      *headerReport       `json:"header,omitempty"`
	Sections    []sectionnav.Entry  `json:"sections,omitempty"`
	Symbols     []symreader.Entry   `json:"symbols,omitempty"`
	Relocations []relocreader.Group `json:"relocations,omitempty"`
	Errors      []string            `json:"errors,omitempty"`
}

// runAll renders every report that can be produced and returns all failures
// together.
func (a *app) runAll(s *session) error {
	var report fullReport
	var result *multierror.Error

	if r, err := newHeaderReport(s); err != nil {
		result = multierror.Append(result, fmt.Errorf("header: %w", err))
	} else {
		report.Header = &r
	}
	var err error
	if report.Sections, err = sectionnav.List(s.hdr, s.img); err != nil {
		result = multierror.Append(result, fmt.Errorf("sections: %w", err))
	}
	if report.Symbols, err = symreader.List(s.hdr, s.img); err != nil {
		result = multierror.Append(result, fmt.Errorf("symbols: %w", err))
	}
	if report.Relocations, err = relocreader.List(s.hdr, s.img); err != nil {
		result = multierror.Append(result, fmt.Errorf("relocations: %w", err))
	}
	if result != nil {
		for _, err := range result.Errors {
			report.Errors = append(report.Errors, err.Error())
		}
	}

	rerr := a.render(report, func(w io.Writer) {
		if report.Header != nil {
			printHeader(w, s.img, *report.Header)
		}
		if report.Sections != nil {
			fmt.Fprintln(w, color.GreenString("Sections:"))
			printSections(w, report.Sections)
		}
		if report.Symbols != nil {
			fmt.Fprintln(w, color.GreenString("Symbols:"))
			printSymbols(w, report.Symbols)
		}
		printRelocations(w, report.Relocations)
	})
	if rerr != nil {
		result = multierror.Append(result, rerr)
	}
	return result.ErrorOrNil()
}
