package capability

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Classes
		ok   bool
	}{
		{"root id ignored", "0x1234|43:1,44,38,", Classes{43: 1, 44: 1, 38: 1}, true},
		{"versions", "211,156,0,4,16,1,L,R,B,RS,|32,38:3,43,44,", Classes{32: 1, 38: 3, 43: 1, 44: 1}, true},
		{"unterminated last token", "1,2|37,38", Classes{37: 1}, true},
		{"zero version", "x|43:0,44,", Classes{43: 0, 44: 1}, true},
		{"no bar", "32,38,", nil, false},
		{"empty node info", "|32,", nil, false},
		{"letters in list", "x|32,ab,", nil, false},
		{"two bars", "x|32,|38,", nil, false},
		{"empty list", "x|", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want Record
	}{
		{"0x1234|43:1,44,38,", Record{ZWave: true, Scene: true, MultiLevel: true}},
		{"x|32,38,43,44,", Record{ZWave: true, Scene: true, MultiLevel: true}},
		{"x|32,37,43,", Record{ZWave: true, BasicSetOnly: true, Binary: true}},
		{"x|37,38,", Record{ZWave: true, BasicSetOnly: true, MultiLevel: true}},
		{"x|43:0,44,", Record{ZWave: true, BasicSetOnly: true}},
		{"garbage", Record{ZWave: true}},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

type fakeSource struct {
	parents map[int]int
	caps    map[int]string
}

func (f fakeSource) CapabilityString(id int) (string, bool) {
	s, ok := f.caps[id]
	return s, ok
}

func (f fakeSource) ParentDevice(id int) (int, bool) {
	p, ok := f.parents[id]
	return p, ok
}

func TestClassifier(t *testing.T) {
	src := fakeSource{
		parents: map[int]int{1: 0, 5: 1, 6: 5, 7: 6, 8: 20, 9: 1},
		caps:    map[int]string{5: "x|38,43,44,", 6: "x|37,", 7: "x|38,43,44,", 8: "x|38,43,44,"},
	}
	c := NewClassifier(src, 0)

	tests := []struct {
		device int
		want   Record
	}{
		{5, Record{ZWave: true, Scene: true, MultiLevel: true}},
		{6, Record{ZWave: true, BasicSetOnly: true, Binary: true}},
		{7, Record{}}, // three levels below the network device
		{8, Record{}}, // another network
		{9, Record{ZWave: true}},
		{1, Record{}},
		{42, Record{}}, // unknown
	}
	for _, tt := range tests {
		if got := c.Classify(tt.device); got != tt.want {
			t.Errorf("Classify(%d) = %+v, want %+v", tt.device, got, tt.want)
		}
	}
}
