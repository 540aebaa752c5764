package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loraset/core/audio"
	"loraset/core/preprocess"
	"loraset/core/tensor"
	"loraset/model"
)

func writeBundle(t *testing.T, w http.ResponseWriter, tensors map[string]*tensor.Tensor) {
	t.Helper()
	b := tensor.NewBundle()
	b.Tensors = tensors
	w.Header().Set("Content-Type", contentSafetensors)
	if _, err := b.WriteTo(w); err != nil {
		t.Errorf("write bundle: %v", err)
	}
}

func newDiTServer(t *testing.T, loaded bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthResp{Status: "ok", ModelLoaded: loaded})
	})
	mux.HandleFunc("/v1/audio/codes", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req codesReq
		json.NewDecoder(r.Body).Decode(&req)
		if strings.HasSuffix(req.AudioPath, "missing.wav") {
			json.NewEncoder(w).Encode(codesResp{Error: "file not found"})
			return
		}
		json.NewEncoder(w).Encode(codesResp{Codes: "<|audio_code_1|><|audio_code_2|>"})
	})
	mux.HandleFunc("/v1/vae/encode", func(w http.ResponseWriter, r *http.Request) {
		in, err := tensor.ReadBundle(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a := in.Tensors["audio"]
		if in.Metadata["sample_rate"] != "48000" || a.Dim(0) != 2 {
			http.Error(w, "bad audio", http.StatusBadRequest)
			return
		}
		frames := a.Dim(1)
		writeBundle(t, w, map[string]*tensor.Tensor{"latents": tensor.Ones(1, frames/2, 64)})
	})
	mux.HandleFunc("/v1/text/encode", func(w http.ResponseWriter, r *http.Request) {
		var req textReq
		json.NewDecoder(r.Body).Decode(&req)
		writeBundle(t, w, map[string]*tensor.Tensor{
			"hidden_states":  tensor.New(1, req.MaxLength, 4),
			"attention_mask": tensor.Ones(1, req.MaxLength),
		})
	})
	mux.HandleFunc("/v1/lyrics/embed", func(w http.ResponseWriter, r *http.Request) {
		writeBundle(t, w, map[string]*tensor.Tensor{"hidden_states": tensor.New(1, 2, 4)})
	})
	mux.HandleFunc("/v1/condition/encode", func(w http.ResponseWriter, r *http.Request) {
		in, err := tensor.ReadBundle(r.Body)
		if err != nil || len(in.Tensors) != 6 {
			http.Error(w, "bad condition inputs", http.StatusBadRequest)
			return
		}
		writeBundle(t, w, map[string]*tensor.Tensor{
			"encoder_hidden_states":  tensor.New(1, 7, 4),
			"encoder_attention_mask": tensor.Ones(1, 7),
		})
	})
	mux.HandleFunc("/v1/silence-latent", func(w http.ResponseWriter, r *http.Request) {
		writeBundle(t, w, map[string]*tensor.Tensor{"silence_latent": tensor.New(1, 750, 64)})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiTClientReady(t *testing.T) {
	ctx := context.Background()
	if err := NewDiTClient(newDiTServer(t, true).URL, "", time.Second).Ready(ctx); err != nil {
		t.Errorf("Ready: %v", err)
	}
	err := NewDiTClient(newDiTServer(t, false).URL, "", time.Second).Ready(ctx)
	if err == nil || !strings.Contains(err.Error(), "model not initialized") {
		t.Errorf("err = %v", err)
	}
}

func TestDiTClientConvertToCodes(t *testing.T) {
	srv := newDiTServer(t, true)
	c := NewDiTClient(srv.URL+"/", "secret", time.Second)

	codes, err := c.ConvertToCodes(context.Background(), "/music/a.wav")
	if err != nil || codes != "<|audio_code_1|><|audio_code_2|>" {
		t.Fatalf("codes = %q err = %v", codes, err)
	}
	if _, err := c.ConvertToCodes(context.Background(), "/music/missing.wav"); err == nil {
		t.Error("expected engine error")
	}

	noKey := NewDiTClient(srv.URL, "", time.Second)
	_, err = noKey.ConvertToCodes(context.Background(), "/music/a.wav")
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("err = %v, want status 401", err)
	}
}

func TestDiTClientTensorEndpoints(t *testing.T) {
	c := NewDiTClient(newDiTServer(t, true).URL, "", 5*time.Second)
	ctx := context.Background()

	wave := &audio.Waveform{SampleRate: 48000, Channels: [][]float32{make([]float32, 100), make([]float32, 100)}}
	lat, err := c.EncodeAudio(ctx, wave)
	if err != nil {
		t.Fatalf("EncodeAudio: %v", err)
	}
	if lat.SqueezeTo(2).Dim(0) != 50 {
		t.Errorf("latents shape = %v", lat.Shape)
	}

	hidden, mask, err := c.EncodeText(ctx, "caption", 256)
	if err != nil || hidden.Dim(1) != 256 || mask.Numel() != 256 {
		t.Fatalf("EncodeText: %v %v %v", hidden, mask, err)
	}

	if _, _, err := c.EmbedLyrics(ctx, "lyrics", 512); err == nil || !strings.Contains(err.Error(), "attention_mask") {
		t.Errorf("EmbedLyrics err = %v, want missing tensor", err)
	}

	encH, encM, err := c.EncodeCondition(ctx, preprocess.ConditionInputs{
		TextHidden: hidden, TextMask: mask,
		LyricHidden: tensor.New(1, 2, 4), LyricMask: tensor.Ones(1, 2),
		ReferAudio: tensor.New(1, 64), ReferOrderMask: tensor.New(1),
	})
	if err != nil || encH.SqueezeTo(2).Dim(0) != 7 || encM.Numel() != 7 {
		t.Fatalf("EncodeCondition: %v", err)
	}

	sil, err := c.SilenceLatent(ctx)
	if err != nil || sil.SqueezeTo(2).Dim(1) != 64 {
		t.Fatalf("SilenceLatent: %v", err)
	}
}

func TestLLMClientUnderstand(t *testing.T) {
	var got understandReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/understand" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		if got.AudioCodes == "decline" {
			w.Write([]byte(`{"metadata": null, "status": "codes too short"}`))
			return
		}
		w.Write([]byte(`{"metadata": {"caption": "jazz trio", "bpm": 96, "keyscale": "Bb major",
			"timesignature": "4", "vocal_language": "en", "lyrics": "[Verse]"}, "status": "ok"}`))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "", time.Second)
	meta, status, err := c.Understand(context.Background(), "codes", 0.7, true)
	if err != nil || status != "ok" {
		t.Fatalf("Understand: %v %q", err, status)
	}
	if got.Temperature != 0.7 || !got.UseConstrainedDecoding {
		t.Errorf("request = %+v", got)
	}
	if meta.Caption != "jazz trio" || *model.ParseBPM(meta.BPM) != 96 || meta.VocalLanguage != "en" {
		t.Errorf("metadata = %+v", meta)
	}

	meta, status, err = c.Understand(context.Background(), "decline", 0.7, false)
	if err != nil || meta != nil || status != "codes too short" {
		t.Errorf("decline = %+v %q %v", meta, status, err)
	}
}
