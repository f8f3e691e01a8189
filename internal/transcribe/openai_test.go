package transcribe

import (
	"testing"
	"time"
)

func TestDecodeVerbose(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     []string
		duration time.Duration
		wantErr  bool
	}{
		{
			name: "segments",
			raw: `{"text": "Olá pessoal. Tudo bem com vocês?", "duration": 3.0, "segments": [
				{"start": 0.0, "end": 1.5, "text": " Olá pessoal."},
				{"start": 1.5, "end": 3.0, "text": " Tudo bem com vocês?"}
			]}`,
			want:     []string{"Olá pessoal.", "Tudo bem com vocês?"},
			duration: 3 * time.Second,
		},
		{
			name: "blank segments dropped",
			raw: `{"text": "Olá pessoal", "duration": 2.0, "segments": [
				{"start": 0.0, "end": 0.5, "text": ""},
				{"start": 0.5, "end": 1.5, "text": "Olá pessoal"},
				{"start": 1.5, "end": 2.0, "text": "   "}
			]}`,
			want:     []string{"Olá pessoal"},
			duration: 2 * time.Second,
		},
		{
			name:     "text only",
			raw:      `{"text": "Uma transcrição sem segmentos.", "segments": null, "duration": 10.5}`,
			want:     []string{"Uma transcrição sem segmentos."},
			duration: 10500 * time.Millisecond,
		},
		{
			name:     "only blank segments falls back to text",
			raw:      `{"text": "Só o texto.", "segments": [{"start": 0, "end": 1, "text": " "}], "duration": 1.0}`,
			want:     []string{"Só o texto."},
			duration: time.Second,
		},
		{
			name: "whisper fields ignored",
			raw: `{"task": "transcribe", "language": "portuguese", "duration": 6.19,
				"text": "Fala galera, tudo bem? Hoje vamos testar o novo console.",
				"segments": [
					{"id": 0, "seek": 0, "start": 0.0, "end": 3.32, "text": " Fala galera, tudo bem?",
					 "tokens": [50364, 440], "temperature": 0.0, "avg_logprob": -0.28, "no_speech_prob": 0.009},
					{"id": 1, "seek": 0, "start": 3.32, "end": 6.19, "text": " Hoje vamos testar o novo console.",
					 "tokens": [50530, 467], "temperature": 0.0, "avg_logprob": -0.28, "no_speech_prob": 0.009}
				]}`,
			want:     []string{"Fala galera, tudo bem?", "Hoje vamos testar o novo console."},
			duration: 6190 * time.Millisecond,
		},
		{name: "empty body", raw: "", wantErr: true},
		{name: "truncated", raw: `{"text": "incompleto`, wantErr: true},
		{name: "nothing spoken", raw: `{"text": "", "segments": [], "duration": 0}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, duration, err := decodeVerbose(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", segments)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeVerbose() error = %v", err)
			}
			if duration != tt.duration {
				t.Errorf("duration = %v, want %v", duration, tt.duration)
			}
			if len(segments) != len(tt.want) {
				t.Fatalf("got %d segments, want %d", len(segments), len(tt.want))
			}
			for i, text := range tt.want {
				if segments[i].Text != text {
					t.Errorf("segment %d text = %q, want %q", i, segments[i].Text, text)
				}
			}
		})
	}
}

func TestDecodeVerboseTiming(t *testing.T) {
	segments, _, err := decodeVerbose(`{"duration": 5.5, "segments": [
		{"start": 1.5, "end": 3.0, "text": "Olá pessoal."},
		{"start": 3.0, "end": 5.5, "text": "Até logo."}
	]}`)
	if err != nil {
		t.Fatalf("decodeVerbose() error = %v", err)
	}

	want := [][2]time.Duration{
		{1500 * time.Millisecond, 3 * time.Second},
		{3 * time.Second, 5500 * time.Millisecond},
	}
	for i, w := range want {
		if segments[i].StartTime != w[0] || segments[i].EndTime != w[1] {
			t.Errorf("segment %d = %v-%v, want %v-%v", i, segments[i].StartTime, segments[i].EndTime, w[0], w[1])
		}
	}
}

func TestDecodeVerboseTextFallbackSpansDuration(t *testing.T) {
	segments, _, err := decodeVerbose(`{"text": "Uma transcrição sem segmentos.", "duration": 10.5}`)
	if err != nil {
		t.Fatalf("decodeVerbose() error = %v", err)
	}
	if segments[0].StartTime != 0 || segments[0].EndTime != 10500*time.Millisecond {
		t.Errorf("fallback segment = %v-%v", segments[0].StartTime, segments[0].EndTime)
	}
}
