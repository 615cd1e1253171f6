package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/loudness-scanner/tags/opusgain"
)

// parseOpusHeaderGain implements the --opus-header-gain=<spec> grammar:
//
//	<decimal>                   Absolute, offset = <decimal>
//	r128[,track][,offset=DB]    Reference R128
//	rg[,track][,offset=DB]      Reference R128 (ReplayGain-flavoured;
//	                            the tag writer treats it identically to
//	                            r128, since R128-offset handling already
//	                            applies the ReplayGain-to-R128 shift)
func parseOpusHeaderGain(spec string) (opusgain.TagInfo, error) {
	if v, err := strconv.ParseFloat(spec, 64); err == nil {
		return opusgain.TagInfo{Reference: opusgain.Absolute, OffsetDB: v}, nil
	}

	clauses := strings.Split(spec, ",")

	switch clauses[0] {
	case "r128", "rg":
	default:
		return opusgain.TagInfo{}, fmt.Errorf("invalid --opus-header-gain spec %q", spec)
	}

	info := opusgain.TagInfo{Reference: opusgain.R128}

	for _, clause := range clauses[1:] {
		switch {
		case clause == "track":
			info.IsTrack = true
		case strings.HasPrefix(clause, "offset="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(clause, "offset="), 64)
			if err != nil {
				return opusgain.TagInfo{}, fmt.Errorf("invalid offset clause %q in %q: %w", clause, spec, err)
			}

			info.OffsetDB = v
		default:
			return opusgain.TagInfo{}, fmt.Errorf("unrecognized clause %q in --opus-header-gain spec %q", clause, spec)
		}
	}

	return info, nil
}
