package account

import (
	"testing"
	"time"
)

func TestSnapshotDeviceBrowserDetection(t *testing.T) {
	cases := []struct {
		userAgent string
		want      string
	}{
		{"", ""},
		{"Mozilla/5.0 (Windows NT 10.0) Chrome/126.0.0.0 Safari/537.36 Edg/126.0", "edge"},
		{"Mozilla/5.0 (X11; Linux) Chrome/126.0 Safari/537.36 OPR/110.0", "opera"},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0", "firefox"},
		{"Mozilla/5.0 (Macintosh) AppleWebKit/537.36 Chrome/126.0 Safari/537.36", "chrome"},
		{"Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Version/17.5 Safari/605.1.15", "safari"},
		{"curl/8.6.0", "other"},
	}
	now := time.Now()
	for _, tc := range cases {
		dev := SnapshotDevice("MacIntel", tc.userAgent, now)
		if dev.Browser != tc.want {
			t.Errorf("browser for %q = %q, want %q", tc.userAgent, dev.Browser, tc.want)
		}
	}

	dev := SnapshotDevice("Win32", cases[1].userAgent, now)
	if dev.Platform != "Win32" || dev.CreatedAt != now.Unix() {
		t.Errorf("snapshot %+v", dev)
	}
}

func TestRecordSessionAge(t *testing.T) {
	now := time.Now()

	var nilRec *Record
	if nilRec.HasSession() {
		t.Fatal("nil record has session")
	}
	if age := nilRec.SessionAge(now); age != 0 {
		t.Fatalf("nil record age %v", age)
	}

	rec := &Record{SessionID: "sid-1", SessionCreatedAt: now.Add(-2 * time.Hour).Unix()}
	got := rec.SessionAge(now)
	if got < 2*time.Hour-time.Second || got > 2*time.Hour+time.Second {
		t.Fatalf("age %v, want ~2h", got)
	}

	empty := &Record{}
	if empty.HasSession() {
		t.Fatal("empty record has session")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"record":{"account_id":"s-100","session_id":"sid-1"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Absent || ev.Record == nil || ev.Record.SessionID != "sid-1" {
		t.Fatalf("event %+v", ev)
	}

	ev, err = DecodeEvent([]byte(`{"absent":true}`))
	if err != nil {
		t.Fatalf("decode absent: %v", err)
	}
	if !ev.Absent {
		t.Fatalf("event %+v", ev)
	}

	if _, err := DecodeEvent([]byte("not json")); err == nil {
		t.Fatal("garbage decoded")
	}
}
