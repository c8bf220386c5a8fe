package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/Xuanwo/go-locale"

	"github.com/sargunv/dzarchive/internal/dzfmt"
)

var (
	inspectJSON   bool
	inspectFilter string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <archive>",
	Short: "Print an archive's header and index tables without unpacking",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON instead of styled text")
	inspectCmd.Flags().StringVar(&inspectFilter, "filter", "", "expr-lang expression over each chunk (fields: ID, Flags []string, DecompressedLength, CompressedLength, File); only matching chunks are listed")
}

// chunkSummary is both the expr-lang evaluation environment for
// --filter and the JSON row shape for --json.
type chunkSummary struct {
	ID                 int      `json:"id"`
	Flags              []string `json:"flags"`
	CompressedLength   uint32   `json:"compressed_length"`
	DecompressedLength uint32   `json:"decompressed_length"`
	File               uint16   `json:"file"`
}

type archiveSummary struct {
	Version        uint8          `json:"version"`
	NumUserFiles   int            `json:"num_user_files"`
	NumDirectories int            `json:"num_directories"`
	NumChunks      int            `json:"num_chunks"`
	VolumeNames    []string       `json:"volume_names"`
	CodecHistogram map[string]int `json:"codec_histogram"`
	Chunks         []chunkSummary `json:"chunks"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer f.Close()

	a, err := dzfmt.Parse(f)
	if err != nil {
		return err
	}

	summary := buildSummary(a)

	program, err := compileFilter(inspectFilter)
	if err != nil {
		return fmt.Errorf("compile --filter: %w", err)
	}
	if program != nil {
		summary.Chunks, err = applyFilter(program, summary.Chunks)
		if err != nil {
			return fmt.Errorf("evaluate --filter: %w", err)
		}
	}

	if inspectJSON {
		return printSummaryJSON(summary)
	}
	return printSummaryText(summary)
}

func buildSummary(a *dzfmt.Archive) archiveSummary {
	histogram := make(map[string]int)
	chunks := make([]chunkSummary, len(a.Chunks))
	for i, c := range a.Chunks {
		names := dzfmt.FlagNames(c.Flags)
		chunks[i] = chunkSummary{
			ID:                 i,
			Flags:              names,
			CompressedLength:   c.CompressedLength,
			DecompressedLength: c.DecompressedLength,
			File:               c.File,
		}
		if bit, ok := dzfmt.CompressionBit(c.Flags); ok {
			histogram[codecLabel(bit)]++
		}
	}

	return archiveSummary{
		Version:        a.Header.Version,
		NumUserFiles:   int(a.Header.NumUserFiles),
		NumDirectories: int(a.Header.NumDirectories),
		NumChunks:      len(a.Chunks),
		VolumeNames:    a.VolumeNames,
		CodecHistogram: histogram,
		Chunks:         chunks,
	}
}

func codecLabel(bit uint16) string {
	names := dzfmt.FlagNames(bit)
	if len(names) == 1 {
		return names[0]
	}
	return fmt.Sprintf("0x%04x", bit)
}

func compileFilter(src string) (*expr.Program, error) {
	if src == "" {
		return nil, nil
	}
	return expr.Compile(src, expr.Env(chunkSummary{}), expr.AsBool())
}

func applyFilter(program *expr.Program, chunks []chunkSummary) ([]chunkSummary, error) {
	var out []chunkSummary
	for _, c := range chunks {
		result, err := expr.Run(program, c)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.ID, err)
		}
		if matched, _ := result.(bool); matched {
			out = append(out, c)
		}
	}
	return out, nil
}

func printSummaryJSON(s archiveSummary) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func printSummaryText(s archiveSummary) error {
	p := localePrinter()

	fmt.Println(headerStyle.Render(fmt.Sprintf("DZ archive (version %d)", s.Version)))
	fmt.Printf("%s %s\n", labelStyle.Render("user files:"), p.Sprintf("%v", number.Decimal(s.NumUserFiles)))
	fmt.Printf("%s %s\n", labelStyle.Render("directories:"), p.Sprintf("%v", number.Decimal(s.NumDirectories)))
	fmt.Printf("%s %s\n", labelStyle.Render("chunks:"), p.Sprintf("%v", number.Decimal(s.NumChunks)))

	if len(s.VolumeNames) > 0 {
		fmt.Println(headerStyle.Render("split volumes:"))
		for i, name := range s.VolumeNames {
			fmt.Printf("  %d: %s\n", i+1, name)
		}
	}

	fmt.Println(headerStyle.Render("codec usage:"))
	for _, name := range sortedKeys(s.CodecHistogram) {
		fmt.Printf("  %s: %s\n", labelStyle.Render(name), p.Sprintf("%v", number.Decimal(s.CodecHistogram[name])))
	}

	if inspectFilter != "" {
		fmt.Println(headerStyle.Render(fmt.Sprintf("chunks matching %q:", inspectFilter)))
		for _, c := range s.Chunks {
			fmt.Printf("  #%d flags=%v decompressed=%s file=%d\n", c.ID, c.Flags, p.Sprintf("%v", number.Decimal(c.DecompressedLength)), c.File)
		}
	}

	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// localePrinter detects the host locale for grouped-digit number
// formatting, falling back to English if detection fails (headless CI,
// minimal containers without LANG set).
func localePrinter() *message.Printer {
	tag, err := locale.Detect()
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}
