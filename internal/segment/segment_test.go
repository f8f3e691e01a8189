package segment

import (
	"strings"
	"testing"

	"github.com/mgpai22/querier/internal/subtitle"
	"github.com/mgpai22/querier/internal/timecode"
)

func cue(start, end, content string) subtitle.Cue {
	return subtitle.Cue{
		Start:   timecode.MustParse(start),
		End:     timecode.MustParse(end),
		Content: content,
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"exactly one second", "00:00:01.000", "00:00:02.000", true},
		{"just under one second", "00:00:01.000", "00:00:01.999", false},
		{"zero length", "00:00:05.000", "00:00:05.000", false},
		{"end before start", "00:00:05.000", "00:00:03.000", false},
		{"long cue", "00:10:00.000", "00:12:30.500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(cue(tt.start, tt.end, "texto")); got != tt.want {
				t.Errorf("IsValid(%s, %s) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestPad(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart string
		wantEnd   string
	}{
		{"regular", "00:00:10.000", "00:00:12.500", "00:00:04.000", "00:00:18.500"},
		{"start clamped to zero", "00:00:02.000", "00:00:04.000", "00:00:00.000", "00:00:10.000"},
		{"minute rollover", "00:01:03.250", "00:01:58.000", "00:00:57.250", "00:02:04.000"},
		{"past midnight", "23:59:50.000", "23:59:57.000", "23:59:44.000", "24:00:03.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := Pad(cue(tt.start, tt.end, "x"), DefaultMargin)
			if seg.Start.String() != tt.wantStart {
				t.Errorf("start: got %s, want %s", seg.Start, tt.wantStart)
			}
			if seg.End.String() != tt.wantEnd {
				t.Errorf("end: got %s, want %s", seg.End, tt.wantEnd)
			}
		})
	}
}

func TestPrepareFiltersBeforePadding(t *testing.T) {
	cues := []subtitle.Cue{
		cue("00:00:10.000", "00:00:12.500", "Olá mundo"),
		cue("00:00:13.000", "00:00:13.400", "curto"),
		cue("00:00:20.000", "00:00:21.000", "limite"),
	}

	segs := Prepare(cues, DefaultMargin)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Content != "Olá mundo" || segs[1].Content != "limite" {
		t.Errorf("unexpected segments: %+v", segs)
	}
}

func TestPrepareAllShort(t *testing.T) {
	cues := []subtitle.Cue{
		cue("00:00:01.000", "00:00:01.500", "um"),
		cue("00:00:02.000", "00:00:02.900", "dois"),
	}
	segs := Prepare(cues, DefaultMargin)
	if len(segs) != 0 {
		t.Errorf("expected no segments, got %d", len(segs))
	}
	if records := Build(segs, Source{VideoID: "vid"}); len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestBuildSingleRecord(t *testing.T) {
	segs := Prepare([]subtitle.Cue{cue("00:00:10.000", "00:00:12.500", "Olá mundo")}, DefaultMargin)
	src := Source{VideoID: "abc123", URL: "https://www.youtube.com/watch?v=abc123", Channel: "Canal X"}

	records := Build(segs, src)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.ID != "abc123-0" {
		t.Errorf("id: got %s", r.ID)
	}
	want := Metadata{
		Start:   "00:00:04.000",
		End:     "00:00:18.500",
		URL:     src.URL,
		VideoID: "abc123",
		Channel: "Canal X",
	}
	if r.Metadata != want {
		t.Errorf("metadata: got %+v, want %+v", r.Metadata, want)
	}
	if r.PreviousID != "" || r.NextID != "" {
		t.Errorf("single record should have no links: %+v", r)
	}
	if err := VerifyChain(records); err != nil {
		t.Errorf("VerifyChain: %v", err)
	}
}

func TestBuildLinksChain(t *testing.T) {
	var cues []subtitle.Cue
	for i := 0; i < 5; i++ {
		start := timecode.FromSeconds(float64(i * 10))
		cues = append(cues, subtitle.Cue{
			Start:   start,
			End:     timecode.Shift(start, 3),
			Content: "parte",
		})
	}

	records := Build(Prepare(cues, DefaultMargin), Source{VideoID: "v"})
	if err := VerifyChain(records); err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}

	byID := make(map[string]Record)
	for _, r := range records {
		byID[r.ID] = r
	}

	// forward walk visits every record in order
	var forward []string
	for id := records[0].ID; id != ""; id = byID[id].NextID {
		forward = append(forward, id)
	}
	if strings.Join(forward, ",") != "v-0,v-1,v-2,v-3,v-4" {
		t.Errorf("forward walk: %v", forward)
	}

	// backward walk is the reverse
	var backward []string
	for id := records[len(records)-1].ID; id != ""; id = byID[id].PreviousID {
		backward = append(backward, id)
	}
	if strings.Join(backward, ",") != "v-4,v-3,v-2,v-1,v-0" {
		t.Errorf("backward walk: %v", backward)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	segs := Prepare([]subtitle.Cue{
		cue("00:00:10.000", "00:00:12.500", "a b"),
		cue("00:00:20.000", "00:00:25.000", "c d"),
	}, DefaultMargin)
	src := Source{VideoID: "same"}

	first := Build(segs, src)
	second := Build(segs, src)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("record %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestVerifyChainDetectsBrokenLinks(t *testing.T) {
	records := Build(Prepare([]subtitle.Cue{
		cue("00:00:10.000", "00:00:12.500", "a b"),
		cue("00:00:20.000", "00:00:25.000", "c d"),
		cue("00:00:30.000", "00:00:35.000", "e f"),
	}, DefaultMargin), Source{VideoID: "x"})

	records[2].PreviousID = "x-0"
	if err := VerifyChain(records); err == nil {
		t.Error("expected error for asymmetric link")
	}
}

func TestVerifyChainDetectsSplitChain(t *testing.T) {
	chain := func() []Record {
		return Build(Prepare([]subtitle.Cue{
			cue("00:00:10.000", "00:00:12.500", "a b"),
			cue("00:00:20.000", "00:00:25.000", "c d"),
			cue("00:00:30.000", "00:00:35.000", "e f"),
		}, DefaultMargin), Source{VideoID: "x"})
	}

	tests := []struct {
		name   string
		mutate func([]Record)
	}{
		{"two disjoint chains", func(r []Record) { r[1].NextID = ""; r[2].PreviousID = "" }},
		{"missing next link", func(r []Record) { r[1].NextID = "" }},
		{"missing previous link", func(r []Record) { r[2].PreviousID = "" }},
		{"skips a record", func(r []Record) { r[0].NextID = "x-2"; r[2].PreviousID = "x-0" }},
		{"unknown next", func(r []Record) { r[1].NextID = "x-9" }},
		{"last links forward", func(r []Record) { r[2].NextID = "x-3" }},
		{"duplicate id", func(r []Record) { r[2].ID = "x-1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := chain()
			tt.mutate(records)
			if err := VerifyChain(records); err == nil {
				t.Error("VerifyChain() = nil, want error")
			}
		})
	}

	if err := VerifyChain(chain()); err != nil {
		t.Errorf("intact chain: %v", err)
	}
	if err := VerifyChain(nil); err != nil {
		t.Errorf("empty chain: %v", err)
	}
}

func TestRecordRender(t *testing.T) {
	r := Record{
		ID:      "abc-0",
		Content: "Olá mundo",
		Metadata: Metadata{
			Start:   "00:00:04.000",
			End:     "00:00:18.500",
			URL:     "https://youtu.be/abc",
			VideoID: "abc",
			Channel: "Canal X",
		},
	}

	want := "start: 00:00:04.000\nend: 00:00:18.500\nurl: https://youtu.be/abc\nvideo_id: abc\nname: Canal X\ncontent: Olá mundo"
	if got := r.Render(); got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}
