package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"loraset/core/dataset"
	"loraset/logger"
	"loraset/model"
)

var (
	editTag          string
	editPosition     string
	editInstrumental bool

	editCaption       string
	editLyrics        string
	editBPM           int
	editClearBPM      bool
	editKeyscale      string
	editTimeSignature string
	editLanguage      string
	editIsInstr       bool
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the working session",
}

var editTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Set the activation tag and how it combines with captions",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		if err := b.SetCustomTag(editTag, model.TagPosition(editPosition)); err != nil {
			return err
		}
		if err := saveSession(b); err != nil {
			return err
		}
		return printStatus(model.Success("Tag '%s' (%s) set on %d samples", editTag, editPosition, b.SampleCount()), nil)
	},
}

var editInstrumentalCmd = &cobra.Command{
	Use:   "instrumental",
	Short: "Mark every sample as instrumental (or vocal with --value=false)",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openSession()
		if err != nil {
			return err
		}
		b.SetAllInstrumental(editInstrumental)
		if err := saveSession(b); err != nil {
			return err
		}
		return printStatus(model.Success("All instrumental: %v", editInstrumental), nil)
	},
}

var editSampleCmd = &cobra.Command{
	Use:   "sample <index>",
	Short: "Edit the fields of one sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sample index %q: %w", args[0], model.ErrInvalidIndex)
		}
		b, err := requireSamples()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		var u dataset.SampleUpdate
		if flags.Changed("caption") {
			u.Caption = &editCaption
		}
		if flags.Changed("lyrics") {
			u.Lyrics = &editLyrics
		}
		if flags.Changed("bpm") {
			u.BPM = &editBPM
		}
		u.ClearBPM = editClearBPM
		if flags.Changed("keyscale") {
			u.Keyscale = &editKeyscale
		}
		if flags.Changed("timesignature") {
			u.TimeSignature = &editTimeSignature
		}
		if flags.Changed("language") {
			u.Language = &editLanguage
		}
		if flags.Changed("instrumental") {
			u.IsInstrumental = &editIsInstr
		}

		s, err := b.UpdateSample(idx, u)
		if err != nil {
			return err
		}
		if err := saveSession(b); err != nil {
			return err
		}
		logger.Debug("sample edited", logger.Int("index", idx), logger.String("file", s.Filename))
		return printStatus(model.Success("Updated %s", s.Filename), nil)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.AddCommand(editTagCmd, editInstrumentalCmd, editSampleCmd)

	editTagCmd.Flags().StringVarP(&editTag, "tag", "t", "", "activation tag, empty to remove")
	editTagCmd.Flags().StringVarP(&editPosition, "position", "p", string(model.TagPrepend), "prepend, append or replace")

	editInstrumentalCmd.Flags().BoolVar(&editInstrumental, "value", true, "instrumental flag for every sample")

	f := editSampleCmd.Flags()
	f.StringVar(&editCaption, "caption", "", "caption")
	f.StringVar(&editLyrics, "lyrics", "", "lyrics used for training")
	f.IntVar(&editBPM, "bpm", 0, "tempo")
	f.BoolVar(&editClearBPM, "clear-bpm", false, "forget the tempo")
	f.StringVar(&editKeyscale, "keyscale", "", "key, e.g. \"A minor\"")
	f.StringVar(&editTimeSignature, "timesignature", "", "time signature, e.g. 4")
	f.StringVar(&editLanguage, "language", "", "vocal language code")
	f.BoolVar(&editIsInstr, "instrumental", false, "instrumental flag")
}
