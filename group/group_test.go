package group

import "testing"

func paths(tracks []TrackInput) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Path
	}

	return out
}

func TestStream_ByDirectory(t *testing.T) {
	tracks := []TrackInput{
		{Path: "/music/albumA/01.flac"},
		{Path: "/music/albumA/02.flac"},
		{Path: "/music/albumB/01.flac"},
		{Path: "/music/albumA/03.flac"}, // directory seen again, but non-contiguous: new batch
	}

	batches := Stream(tracks, Options{})

	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}

	if got := paths(batches[0].Tracks); len(got) != 2 || got[0] != tracks[0].Path || got[1] != tracks[1].Path {
		t.Errorf("batch 0 = %v", got)
	}

	if !batches[0].AlbumMode || !batches[1].AlbumMode || !batches[2].AlbumMode {
		t.Errorf("directory batches should all have AlbumMode true")
	}

	if len(batches[2].Tracks) != 1 {
		t.Errorf("batch 2 should be the singleton re-opened albumA directory")
	}
}

func TestStream_ForceSingleAlbum(t *testing.T) {
	tracks := []TrackInput{
		{Path: "/music/a/01.flac"},
		{Path: "/music/b/01.flac"},
	}

	batches := Stream(tracks, Options{ForceSingleAlbum: true})

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}

	if !batches[0].AlbumMode {
		t.Errorf("forced album batch should have AlbumMode true")
	}

	if len(batches[0].Tracks) != 2 {
		t.Errorf("forced album batch should contain all tracks")
	}
}

func TestStream_PerTrackOnly(t *testing.T) {
	tracks := []TrackInput{
		{Path: "/music/a/01.flac"},
		{Path: "/music/a/02.flac"},
	}

	batches := Stream(tracks, Options{PerTrackOnly: true})

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}

	for _, b := range batches {
		if b.AlbumMode {
			t.Errorf("per-track batch should have AlbumMode false")
		}

		if len(b.Tracks) != 1 {
			t.Errorf("per-track batch should be a singleton")
		}
	}
}

func TestStream_EmptyInput(t *testing.T) {
	if got := Stream(nil, Options{}); len(got) != 0 {
		t.Errorf("empty input should yield no batches, got %v", got)
	}

	if got := Stream(nil, Options{ForceSingleAlbum: true}); len(got) != 0 {
		t.Errorf("empty input with ForceSingleAlbum should yield no batches, got %v", got)
	}
}

func TestStream_OrderPreserved(t *testing.T) {
	tracks := []TrackInput{
		{Path: "/music/a/03.flac"},
		{Path: "/music/a/01.flac"},
		{Path: "/music/a/02.flac"},
	}

	batches := Stream(tracks, Options{})

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}

	got := paths(batches[0].Tracks)
	want := []string{"/music/a/03.flac", "/music/a/01.flac", "/music/a/02.flac"}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track order not preserved: got %v, want %v", got, want)
		}
	}
}
