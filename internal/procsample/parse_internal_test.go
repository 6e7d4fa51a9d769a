package procsample

import "testing"

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantPID  int32
		wantName string
		wantIn   uint64
		wantOut  uint64
	}{
		{
			name:     "plain record",
			line:     "12:00:00.000000,firefox.412,2048,512",
			wantOK:   true,
			wantPID:  412,
			wantName: "firefox",
			wantIn:   2048,
			wantOut:  512,
		},
		{
			name:     "name containing dots",
			line:     "12:00:01.000000,com.example.agent.99,10,20",
			wantOK:   true,
			wantPID:  99,
			wantName: "com.example.agent",
			wantIn:   10,
			wantOut:  20,
		},
		{
			name:     "spaces around counters",
			line:     "12:00:01,kernel_task.0, 7 , 9 ",
			wantOK:   true,
			wantPID:  0,
			wantName: "kernel_task",
			wantIn:   7,
			wantOut:  9,
		},
		{name: "header line", line: "time,process,bytes_in,bytes_out"},
		{name: "empty line", line: ""},
		{name: "whitespace only", line: "   "},
		{name: "too few fields", line: "12:00:00,firefox.412,2048"},
		{name: "missing pid", line: "12:00:00,firefox,2048,512"},
		{name: "trailing dot", line: "12:00:00,firefox.,2048,512"},
		{name: "non-numeric pid", line: "12:00:00,firefox.abc,2048,512"},
		{name: "negative pid", line: "12:00:00,firefox.-1,2048,512"},
		{name: "garbage bytes in", line: "12:00:00,firefox.412,xx,512"},
		{name: "garbage bytes out", line: "12:00:00,firefox.412,2048,yy"},
		{name: "negative counter", line: "12:00:00,firefox.412,-5,512"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, in, out, ok := parseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if key.pid != tt.wantPID {
				t.Errorf("pid = %d, want %d", key.pid, tt.wantPID)
			}
			if key.name != tt.wantName {
				t.Errorf("name = %q, want %q", key.name, tt.wantName)
			}
			if in != tt.wantIn || out != tt.wantOut {
				t.Errorf("bytes = (%d, %d), want (%d, %d)", in, out, tt.wantIn, tt.wantOut)
			}
		})
	}
}

func TestBundleFromPath(t *testing.T) {
	tests := []struct {
		exe  string
		want string
	}{
		{exe: "/Applications/Safari.app/Contents/MacOS/Safari", want: "Safari"},
		{exe: "/usr/bin/curl", want: ""},
		{exe: "", want: ""},
	}

	for _, tt := range tests {
		if got := bundleFromPath(tt.exe); got != tt.want {
			t.Errorf("bundleFromPath(%q) = %q, want %q", tt.exe, got, tt.want)
		}
	}
}
