package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/spf13/cobra"

	"github.com/rolfmichelsen/dragontools/internal/diskerr"
	"github.com/rolfmichelsen/dragontools/tape"
)

// dumpFlags is parsed with kong rather than cobra's own pflag set,
// giving the single subcommand's arguments self-documenting struct
// tags instead of a block of cmd.Flags().StringVar calls.
type dumpFlags struct {
	TapeImage string `kong:"arg,required,type='existingfile',help='Cassette (.cas) image to dump.'"`
	Verbose   bool   `kong:"short='v',help='Print payload bytes for data blocks.'"`
}

var dumpCmd = &cobra.Command{
	Use:   "dump <tape-image>",
	Short: "print a block-by-block summary of a cassette image",
	Long: `Dump prints one summary line per block found in a cassette
(.cas) image, in the order they appear on tape, until an EOF block or
the end of the file is reached.

dragondump dump tunes.cas
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDump(args); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(args []string) error {
	var flags dumpFlags
	parser, err := kong.New(&flags, kong.Name("dump"), kong.Description(dumpCmd.Short))
	if err != nil {
		return err
	}
	if _, err := parser.Parse(args); err != nil {
		return err
	}

	data, err := os.ReadFile(flags.TapeImage)
	if err != nil {
		return err
	}

	t := tape.Open(data)
	for i := 0; ; i++ {
		block, err := t.ReadBlock()
		if err != nil {
			if diskerr.IsEndOfStream(err) || diskerr.IsEndOfTape(err) {
				return nil
			}
			return fmt.Errorf("block %d: %w", i, err)
		}
		printBlockSummary(i, block, flags.Verbose)
		if block.Type == tape.BlockTypeEOF {
			return nil
		}
	}
}

func printBlockSummary(index int, b *tape.Block, verbose bool) {
	kind := blockTypeName(b.Type)
	fmt.Printf("block %d: type=%s length=%d checksum=%#02x\n", index, kind, len(b.Payload), b.StoredChecksum)
	if b.Type == tape.BlockTypeHeader {
		if h, err := tape.DecodeHeaderPayload(b.Payload); err == nil {
			fmt.Printf("  filename=%q type=%d ascii=%v gapped=%v load=%#04x start=%#04x\n",
				h.Filename, h.FileType, h.IsASCII, h.IsGapped, h.LoadAddr, h.StartAddr)
		}
	}
	if verbose && b.Type == tape.BlockTypeData {
		fmt.Printf("  %x\n", b.Payload)
	}
}

func blockTypeName(t byte) string {
	switch t {
	case tape.BlockTypeHeader:
		return "header"
	case tape.BlockTypeData:
		return "data"
	case tape.BlockTypeEOF:
		return "eof"
	default:
		return fmt.Sprintf("unknown(%#02x)", t)
	}
}
