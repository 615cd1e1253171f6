package app

import (
	"testing"

	"github.com/cwbudde/loudness-scanner/tags/opusgain"
)

func TestParseOpusHeaderGain_Absolute(t *testing.T) {
	info, err := parseOpusHeaderGain("-3.5")
	if err != nil {
		t.Fatalf("parseOpusHeaderGain: %v", err)
	}

	if info.Reference != opusgain.Absolute || info.OffsetDB != -3.5 {
		t.Errorf("got %+v, want Absolute offset -3.5", info)
	}
}

func TestParseOpusHeaderGain_R128(t *testing.T) {
	info, err := parseOpusHeaderGain("r128,track,offset=1.5")
	if err != nil {
		t.Fatalf("parseOpusHeaderGain: %v", err)
	}

	if info.Reference != opusgain.R128 || !info.IsTrack || info.OffsetDB != 1.5 {
		t.Errorf("got %+v, want R128 track offset 1.5", info)
	}
}

func TestParseOpusHeaderGain_RGWithoutClauses(t *testing.T) {
	info, err := parseOpusHeaderGain("rg")
	if err != nil {
		t.Fatalf("parseOpusHeaderGain: %v", err)
	}

	if info.Reference != opusgain.R128 || info.IsTrack || info.OffsetDB != 0 {
		t.Errorf("got %+v, want R128 album offset 0", info)
	}
}

func TestParseOpusHeaderGain_Invalid(t *testing.T) {
	cases := []string{"", "bogus", "r128,offset=notanumber", "r128,mystery"}

	for _, c := range cases {
		if _, err := parseOpusHeaderGain(c); err == nil {
			t.Errorf("parseOpusHeaderGain(%q) should have failed", c)
		}
	}
}
