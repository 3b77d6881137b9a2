package questionbank

import (
	"errors"
	"testing"

	"cbt-exam-runner/internal/domain"
)

func TestDecodeBareArrayWithLegacyKey(t *testing.T) {
	data := []byte(`[{"q":"2+2?","options":["3","4","5"],"a":1}]`)
	qs, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(qs) != 1 || qs[0].CorrectIndex != 1 || qs[0].Prompt != "2+2?" {
		t.Fatalf("unexpected questions %+v", qs)
	}
}

func TestDecodeWrappedWithCorrectKeyAndPassage(t *testing.T) {
	data := []byte(`{"questions":[{"q":"Pick","p":"A passage","options":["x","y"],"correct":0,"explanation":"because"}]}`)
	qs, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if qs[0].Passage != "A passage" || qs[0].Explanation != "because" || qs[0].CorrectIndex != 0 {
		t.Fatalf("unexpected question %+v", qs[0])
	}
}

func TestDecodeRejectsBadBanks(t *testing.T) {
	cases := map[string]string{
		"missing key":      `[{"q":"x","options":["a","b"]}]`,
		"key out of range": `[{"q":"x","options":["a","b"],"correct":2}]`,
		"conflicting keys": `[{"q":"x","options":["a","b"],"correct":0,"a":1}]`,
		"one option":       `[{"q":"x","options":["a"],"correct":0}]`,
		"no prompt":        `[{"options":["a","b"],"correct":0}]`,
		"no questions":     `{"items":[]}`,
		"not json":         `<html>404</html>`,
	}
	for name, body := range cases {
		if _, err := Decode([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecodeEmptyIsEmptyQuestionSet(t *testing.T) {
	for _, body := range []string{`[]`, `{"questions":[]}`, `  `} {
		if _, err := Decode([]byte(body)); !errors.Is(err, domain.ErrEmptyQuestionSet) {
			t.Fatalf("%q: expected empty set error, got %v", body, err)
		}
	}
}

func TestEncodeUsesCanonicalKey(t *testing.T) {
	in := []domain.Question{{Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: 1}}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `[{"q":"p","options":["a","b"],"correct":1}]` {
		t.Fatalf("unexpected encoding %s", data)
	}
	out, err := Decode(data)
	if err != nil || out[0].CorrectIndex != 1 {
		t.Fatalf("decode encoded: %v %+v", err, out)
	}
}
