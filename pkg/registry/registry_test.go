package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
)

const preamble = `OUI/MA-L                                                    Organization
company_id                                                  Organization
                                                            Address

`

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func TestParse(t *testing.T) {
	tt := []struct {
		name string
		text string
		want Records
	}{
		{
			name: "expected",
			text: preamble +
				"6C-63-9C   (hex)\t\tExample Corp\n" +
				"6C639C     (base 16)\t\tExample Corp\n" +
				"\t\t\t\t1 Main Street\n" +
				"\t\t\t\tSpringfield\n" +
				"\t\t\t\tUS\n" +
				"\n" +
				"28-6F-B9   (hex)\t\tNokia Shanghai Bell Co., Ltd.\n" +
				"286FB9     (base 16)\t\tNokia Shanghai Bell Co., Ltd.\n" +
				"\t\t\t\tNo.388 Ning Qiao Road,Jin Qiao Pudong Shanghai\n" +
				"\t\t\t\tShanghai   201206\n" +
				"\t\t\t\tCN\n" +
				"\n",
			want: Records{
				"6C639C": {
					Prefix:   "6C639C",
					Company:  "Example Corp",
					Address:  []string{"1 Main Street"},
					Location: "Springfield",
					Country:  "US",
				},
				"286FB9": {
					Prefix:   "286FB9",
					Company:  "Nokia Shanghai Bell Co., Ltd.",
					Address:  []string{"No.388 Ning Qiao Road,Jin Qiao Pudong Shanghai"},
					Location: "Shanghai   201206",
					Country:  "CN",
				},
			},
		},
		{
			name: "no address lines",
			text: preamble +
				"000001     (base 16)\t\tPrivate\n" +
				"\n",
			want: Records{
				"000001": {Prefix: "000001", Company: "Private"},
			},
		},
		{
			name: "single address line",
			text: preamble +
				"000002     (base 16)\t\tSolo\n" +
				"\t\t\t\tDE\n",
			want: Records{
				"000002": {Prefix: "000002", Company: "Solo", Country: "DE"},
			},
		},
		{
			name: "missing company name",
			text: preamble +
				"000003     (base 16)\n" +
				"\t\t\t\tBerlin\n" +
				"\t\t\t\tDE\n",
			want: Records{
				"000003": {Prefix: "000003", Location: "Berlin", Country: "DE"},
			},
		},
		{
			name: "header terminates previous record",
			text: preamble +
				"00000A     (base 16)\t\tFirst\n" +
				"\t\t\t\tParis\n" +
				"\t\t\t\tFR\n" +
				"00000B     (base 16)\t\tSecond\n" +
				"\t\t\t\tRome\n" +
				"\t\t\t\tIT\n",
			want: Records{
				"00000A": {Prefix: "00000A", Company: "First", Location: "Paris", Country: "FR"},
				"00000B": {Prefix: "00000B", Company: "Second", Location: "Rome", Country: "IT"},
			},
		},
		{
			name: "legend line terminates record",
			text: preamble +
				"00000C     (base 16)\t\tThird\n" +
				"\t\t\t\tOslo\n" +
				"\t\t\t\tNO\n" +
				"00-00-0D   (hex)\t\tFourth\n" +
				"\t\t\t\tnot an address\n",
			want: Records{
				"00000C": {Prefix: "00000C", Company: "Third", Location: "Oslo", Country: "NO"},
			},
		},
		{
			name: "duplicate prefix last wins",
			text: preamble +
				"ABCDEF     (base 16)\t\tOld Name\n" +
				"\t\t\t\tXX\n" +
				"\n" +
				"abcdef     (base 16)\t\tNew Name\n" +
				"\t\t\t\tYY\n",
			want: Records{
				"ABCDEF": {Prefix: "ABCDEF", Company: "New Name", Country: "YY"},
			},
		},
		{
			name: "truncated header is skipped",
			text: preamble +
				"(base 16)\n" +
				"\t\t\t\torphaned\n" +
				"\n" +
				"12G456     (base 16)\t\tNot Hex\n" +
				"\n" +
				"1234567    (base 16)\t\tToo Long\n" +
				"\n" +
				"123456     (base 16)\t\tValid\n",
			want: Records{
				"123456": {Prefix: "123456", Company: "Valid"},
			},
		},
		{
			name: "preamble is never parsed",
			text: "111111     (base 16)\t\tIn Preamble\n\n\n\n",
			want: Records{},
		},
		{
			name: "empty document",
			text: "",
			want: Records{},
		},
		{
			name: "crlf line endings",
			text: strings.ReplaceAll(preamble+
				"6C639C     (base 16)\t\tExample Corp\n"+
				"\t\t\t\tSpringfield\n"+
				"\t\t\t\tUS\n", "\n", "\r\n"),
			want: Records{
				"6C639C": {Prefix: "6C639C", Company: "Example Corp", Location: "Springfield", Country: "US"},
			},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseString(tc.text)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if !cmp.Equal(got, tc.want) {
				t.Error(cmp.Diff(got, tc.want))
			}
		})
	}
}

func TestParsePrefixShape(t *testing.T) {
	text := preamble +
		"6c-63-9c   (hex)\t\ta\n" +
		"6c639c     (base 16)\t\ta\n" +
		"\n" +
		"00:1A:2B   (base 16)\t\tb\n" +
		"\n" +
		"FFFFFF     (base 16)\t\tc\n" +
		"\n" +
		"ZZZZZZ     (base 16)\t\td\n"
	got, err := ParseString(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
	re := regexp.MustCompile(`^[0-9A-F]{6}$`)
	for k, rec := range got {
		if !re.MatchString(rec.Prefix) {
			t.Errorf("prefix %q is not 6 uppercase hex characters", rec.Prefix)
		}
		if k != rec.Prefix {
			t.Errorf("key %q does not match prefix %q", k, rec.Prefix)
		}
	}
}

func TestParseOptions(t *testing.T) {
	text := "only one preamble line\n" +
		"AABBCC [hex-id] Custom Marker Inc\n" +
		"  Lyon\n" +
		"  FR\n" +
		"-- legend --\n" +
		"  ignored\n"
	got, err := ParseString(text,
		WithSkipLines(1),
		WithMarker("[hex-id]"),
		WithLegendMarker("-- legend --"),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := Records{
		"AABBCC": {Prefix: "AABBCC", Company: "Custom Marker Inc", Location: "Lyon", Country: "FR"},
	}
	if !cmp.Equal(got, want) {
		t.Error(cmp.Diff(got, want))
	}
}

func TestParseLogsMalformed(t *testing.T) {
	l := &recordingLogger{}
	_, err := ParseString(preamble+"(base 16)\n", WithLogger(l))
	if err != nil {
		t.Fatal(err)
	}
	if len(l.lines) != 1 || !strings.Contains(l.lines[0], "line 5") {
		t.Errorf("unexpected log output: %q", l.lines)
	}
}

func TestParseReadError(t *testing.T) {
	errRead := errors.New("broken pipe")
	_, err := Parse(iotest.ErrReader(errRead))
	if !errors.Is(err, errRead) {
		t.Errorf("Parse() error = %v, want %v", err, errRead)
	}
}

func TestMalformedRecordError(t *testing.T) {
	var err error = &MalformedRecordError{Line: 7, Text: "(base 16)"}
	if !errors.Is(err, ErrMalformedRecord) {
		t.Error("MalformedRecordError does not match ErrMalformedRecord")
	}
	if want := `line 7: malformed record header "(base 16)"`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
