package record

import (
	"testing"

	"github.com/lemeter/lemeter/internal/errors"
)

func TestAppendLine(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "typical",
			rec:  Record{TimestampNS: 123456789, Epoch: 3, Value: 2047},
			want: "123456789,3,2047\n",
		},
		{
			name: "zeros",
			rec:  Record{},
			want: "0,0,0\n",
		},
		{
			name: "max value",
			rec:  Record{TimestampNS: 18446744073709551615, Epoch: 42, Value: MaxValue},
			want: "18446744073709551615,42,4095\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(tt.rec.AppendLine(nil))
			if got != tt.want {
				t.Errorf("AppendLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendLineReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	buf = Record{TimestampNS: 1, Epoch: 0, Value: 10}.AppendLine(buf)
	buf = Record{TimestampNS: 2, Epoch: 0, Value: 11}.AppendLine(buf)

	want := "1,0,10\n2,0,11\n"
	if string(buf) != want {
		t.Errorf("appended buffer = %q, want %q", string(buf), want)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Record
		wantErr bool
	}{
		{
			name: "typical",
			line: "123456789,3,2047",
			want: Record{TimestampNS: 123456789, Epoch: 3, Value: 2047},
		},
		{
			name: "error sentinel parses",
			line: "5,0,-1",
			want: Record{TimestampNS: 5, Epoch: 0, Value: -1},
		},
		{
			name: "full scale",
			line: "1,1,4095",
			want: Record{TimestampNS: 1, Epoch: 1, Value: 4095},
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: true,
		},
		{
			name:    "one field",
			line:    "123",
			wantErr: true,
		},
		{
			name:    "two fields",
			line:    "123,4",
			wantErr: true,
		},
		{
			name:    "four fields",
			line:    "1,2,3,4",
			wantErr: true,
		},
		{
			name:    "value above 12 bits",
			line:    "1,2,4096",
			wantErr: true,
		},
		{
			name:    "value below sentinel",
			line:    "1,2,-2",
			wantErr: true,
		},
		{
			name:    "negative timestamp",
			line:    "-1,2,3",
			wantErr: true,
		},
		{
			name:    "garbage value",
			line:    "1,2,abc",
			wantErr: true,
		},
		{
			name:    "float timestamp",
			line:    "1.5,2,3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLine(%q) = %+v, want error", tt.line, got)
				}
				if !errors.Is(err, errors.ErrBadRecord) {
					t.Errorf("ParseLine(%q) error = %v, want ErrBadRecord", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine(%q) unexpected error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
