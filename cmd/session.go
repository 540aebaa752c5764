package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"loraset/core/audio"
	"loraset/core/dataset"
	"loraset/core/engine"
	"loraset/logger"
	"loraset/model"
	"loraset/repository"
)

// openSession returns a builder holding the working session, or an empty one when
// no session exists yet.
func openSession() (*dataset.Builder, error) {
	repo := repository.NewJSONDatasetRepository()
	b := dataset.NewBuilder(audio.NewFFmpegProcessor(), repo)
	doc, err := repo.Load(sessionPath)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Debug("no session yet", logger.String("path", sessionPath))
			return b, nil
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	if err := b.Restore(doc); err != nil {
		return nil, fmt.Errorf("open session %s: %w", sessionPath, err)
	}
	return b, nil
}

// requireSamples opens the session and fails when it is empty.
func requireSamples() (*dataset.Builder, error) {
	b, err := openSession()
	if err != nil {
		return nil, err
	}
	if b.SampleCount() == 0 {
		return nil, fmt.Errorf("session %s has no samples, run `loraset scan <dir>` or `loraset load <file>` first: %w",
			sessionPath, model.ErrNoSamples)
	}
	return b, nil
}

func saveSession(b *dataset.Builder) error {
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return repository.NewJSONDatasetRepository().Save(sessionPath, b.Snapshot())
}

// printStatus prints a reviewer status and turns a failure into an error exit.
func printStatus(st model.Status, err error) error {
	fmt.Println(st.String())
	if err != nil {
		return err
	}
	if !st.OK {
		return errors.New(st.Message)
	}
	return nil
}

func newDiTClient() *engine.DiTClient {
	return engine.NewDiTClient(cfg.DiTAPIURL, cfg.EngineAPIKey, cfg.EngineTimeout)
}

func newLLMClient() *engine.LLMClient {
	return engine.NewLLMClient(cfg.LLMAPIURL, cfg.EngineAPIKey, cfg.EngineTimeout)
}
