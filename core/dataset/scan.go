package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"loraset/logger"
	"loraset/model"
)

// SupportedAudioFormats lists the extensions picked up by a scan.
var SupportedAudioFormats = []string{".wav", ".mp3", ".flac", ".ogg", ".opus"}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedAudioFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// ScanReport summarises a directory scan.
type ScanReport struct {
	Dir        string
	Found      int
	WithLyrics int
	Skipped    int
}

// Status renders the report for a reviewer.
func (r ScanReport) Status() model.Status {
	if r.Found == 0 {
		return model.Failure("No audio files found in %s\nSupported formats: %s",
			r.Dir, strings.Join(SupportedAudioFormats, ", "))
	}
	msg := fmt.Sprintf("Found %d audio files in %s", r.Found, r.Dir)
	if r.WithLyrics > 0 {
		msg += fmt.Sprintf("\n   📝 %d files have accompanying lyrics (.txt)", r.WithLyrics)
	}
	if r.Skipped > 0 {
		msg += fmt.Sprintf("\n   %d files skipped (unreadable)", r.Skipped)
	}
	return model.Success("%s", msg)
}

// ScanDirectory replaces the collection with one sample per audio file under dir.
// A missing or non-directory root is an error; an empty result is not.
func (b *Builder) ScanDirectory(dir string) (ScanReport, error) {
	report := ScanReport{Dir: dir}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return report, fmt.Errorf("directory %s: %w", dir, model.ErrNotFound)
		}
		return report, fmt.Errorf("stat %s: %v: %w", dir, err, model.ErrIO)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%s: %w", dir, model.ErrNotADirectory)
	}

	b.currentDir = dir
	b.samples = nil
	b.metadata.NumSamples = 0

	audioFiles, err := findAudioFiles(dir)
	if err != nil {
		return report, fmt.Errorf("walk %s: %v: %w", dir, err, model.ErrIO)
	}
	if len(audioFiles) == 0 {
		logger.Warn("no audio files found", logger.String("dir", dir))
		return report, nil
	}

	for _, audioPath := range audioFiles {
		duration, err := b.prober.GetAudioDuration(audioPath)
		if err != nil {
			logger.Warn("failed to read audio file, skipping",
				logger.String("path", audioPath),
				logger.ErrorField(err))
			report.Skipped++
			continue
		}

		lyrics, hasLyrics := loadLyricsFile(audioPath)

		sample := model.NewSample()
		sample.AudioPath = audioPath
		sample.Filename = filepath.Base(audioPath)
		sample.Duration = duration
		sample.CustomTag = b.metadata.CustomTag
		sample.IsInstrumental = b.metadata.AllInstrumental
		if hasLyrics {
			sample.IsInstrumental = false
			sample.Lyrics = lyrics
			sample.RawLyrics = lyrics
			report.WithLyrics++
		}
		b.samples = append(b.samples, sample)
	}

	report.Found = len(b.samples)
	b.metadata.NumSamples = len(b.samples)
	logger.Info("directory scanned",
		logger.String("dir", dir),
		logger.Int("found", report.Found),
		logger.Int("withLyrics", report.WithLyrics),
		logger.Int("skipped", report.Skipped))
	return report, nil
}

func findAudioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LyricsPath returns the sidecar lyrics file for an audio file.
func LyricsPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
}

// loadLyricsFile reads the sidecar lyrics file. Missing, empty or unreadable
// sidecars count as no lyrics.
func loadLyricsFile(audioPath string) (string, bool) {
	lyricsPath := LyricsPath(audioPath)
	data, err := os.ReadFile(lyricsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read lyrics file",
				logger.String("path", lyricsPath),
				logger.ErrorField(err))
		}
		return "", false
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		logger.Warn("lyrics file is empty", logger.String("path", lyricsPath))
		return "", false
	}
	logger.Debug("loaded lyrics", logger.String("path", lyricsPath))
	return content, true
}
