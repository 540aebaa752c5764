package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loraset/core/review"
)

var (
	showSample int
	showDiff   bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the working session as a review table",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		meta := b.Metadata()

		if showSample >= 0 {
			s, err := b.Sample(showSample)
			if err != nil {
				return err
			}
			bpm := "-"
			if s.BPM != nil {
				bpm = fmt.Sprint(*s.BPM)
			}
			fmt.Printf("%s (%s)\n", s.Filename, s.ID)
			fmt.Printf("  caption:   %s\n", s.FullCaption(meta.TagPosition))
			fmt.Printf("  bpm:       %s  key: %s  time: %s\n", bpm, s.Keyscale, s.TimeSignature)
			fmt.Printf("  language:  %s  instrumental: %v  labeled: %v\n", s.Language, s.IsInstrumental, s.Labeled)
			fmt.Printf("  lyrics:\n%s\n", s.Lyrics)
			if showDiff {
				if segments := review.SampleDiff(s); segments != nil {
					fmt.Printf("  lyrics diff (raw -> formatted):\n%s\n", review.Render(segments))
				} else {
					fmt.Println("  no formatted lyrics")
				}
			}
			return nil
		}

		fmt.Printf("%s: %d samples (%d labeled), tag '%s' (%s)\n",
			meta.Name, b.SampleCount(), b.LabeledCount(), meta.CustomTag, meta.TagPosition)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tFile\tDuration\tLabeled\tBPM\tKey\tCaption")
		for _, row := range b.PreviewRows() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				row.Index, row.Filename, row.Duration, row.Labeled, row.BPM, row.Keyscale, row.Caption)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showSample, "sample", "s", -1, "show one sample in full")
	showCmd.Flags().BoolVar(&showDiff, "diff", false, "with --sample, show how the LM reformatted the lyrics")
}
