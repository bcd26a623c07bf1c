package itinerary

import (
	"testing"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

func TestParse_PlainChatIsNotStructured(t *testing.T) {
	cases := []string{
		"",
		"안녕하세요! 무엇을 도와드릴까요?",
		"제주도는 3월에 가도 좋아요. 날씨가 포근하거든요.",
		"braces alone { } [ ] do not make an itinerary",
		"the word itinerary without quotes is just prose",
	}
	for _, in := range cases {
		if rec := Parse(in); rec != nil {
			t.Errorf("Parse(%q) = %+v, want nil", in, rec)
		}
	}
}

func TestLooksStructured_GatesCandidateGeneration(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"일반 채팅 답변입니다.", false},
		{"the word itinerary without quotes is just prose", false},
		{`{"broken json with no markers`, false},
		{`{"days":[]}`, true},
		{`{"type":"itinerary"}`, true},
		{"prose before {\"days\": [", true},
	}
	for _, tc := range cases {
		if got := looksStructured(tc.in); got != tc.want {
			t.Errorf("looksStructured(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_RejectedTextSkipsCandidates(t *testing.T) {
	// Marker-free text must short-circuit before candidate generation (and
	// therefore before any repair work). Wrap the generators with counters
	// to observe that.
	orig := candidateFns
	defer func() { candidateFns = orig }()

	calls := 0
	candidateFns = make([]func(string) (string, bool), len(orig))
	for i, gen := range orig {
		gen := gen
		candidateFns[i] = func(s string) (string, bool) {
			calls++
			return gen(s)
		}
	}

	if rec := Parse("chat reply with stray braces {{{ [[ and no markers"); rec != nil {
		t.Fatalf("Parse = %+v, want nil", rec)
	}
	if calls != 0 {
		t.Fatalf("candidate generators ran %d times for rejected text", calls)
	}

	if rec := Parse(`{"days":[]}`); rec == nil {
		t.Fatal("marker-bearing text should reach the generators and parse")
	}
	if calls == 0 {
		t.Fatal("counter wrappers never ran; seam is broken")
	}
}

func TestParse_CleanObject(t *testing.T) {
	in := `{"type":"itinerary","title":"도쿄 2일","destination":"도쿄","days":[` +
		`{"day":1,"theme":"시내","activities":[{"time":"09:00","title":"아사쿠사","category":"attraction"}]},` +
		`{"day":2,"activities":[{"title":"츠키지 시장","category":"restaurant"}]}]}`

	rec := Parse(in)
	if rec == nil {
		t.Fatal("Parse returned nil for a clean object")
	}
	if rec.Partial {
		t.Fatal("clean object must not be flagged partial")
	}
	if rec.Title != "도쿄 2일" || len(rec.Days) != 2 {
		t.Fatalf("record mismatch: %+v", rec)
	}
	if rec.Days[0].Activities[0].Title != "아사쿠사" {
		t.Fatalf("activity mismatch: %+v", rec.Days[0].Activities)
	}
}

func TestParse_FencedBlockWithProse(t *testing.T) {
	in := "네, 이렇게 바꿔봤어요!\n\n```json\n" +
		`{"type":"itinerary","days":[{"day":1,"activities":[]}]}` +
		"\n```\n\n즐거운 여행 되세요!"

	rec := Parse(in)
	if rec == nil {
		t.Fatal("fenced payload not recovered")
	}
	if len(rec.Days) != 1 || rec.Days[0].Day != 1 {
		t.Fatalf("days = %+v", rec.Days)
	}
}

func TestParse_UnclosedFence(t *testing.T) {
	in := "수정했어요.\n```json\n" +
		`{"days":[{"day":1,"activities":[]}]}`

	if rec := Parse(in); rec == nil {
		t.Fatal("unclosed fence should still yield the payload")
	}
}

func TestParse_ProseWrappedWithoutFence(t *testing.T) {
	in := `요청하신 일정이에요. {"days":[{"day":1,"activities":[]}]} 확인해 주세요.`
	if rec := Parse(in); rec == nil {
		t.Fatal("brace-span candidate should recover prose-wrapped JSON")
	}
}

func TestParse_MissingTypeDefaulted(t *testing.T) {
	rec := Parse(`{"days":[{"day":1,"activities":[]}]}`)
	if rec == nil {
		t.Fatal("Parse returned nil")
	}
	if rec.Type != "itinerary" {
		t.Fatalf("type = %q, want defaulted %q", rec.Type, "itinerary")
	}
}

func TestParse_DaysMustBeAList(t *testing.T) {
	cases := []string{
		`{"days":"월화수"}`,
		`{"days":3}`,
		`{"days":{"day":1}}`,
		`{"days":null}`,
		`{"itinerary":"있긴 한데 days가 없네요"}`,
	}
	for _, in := range cases {
		if rec := Parse(in); rec != nil {
			t.Errorf("Parse(%q) accepted a non-list days field", in)
		}
	}
}

func TestParse_TruncatedAtDayBoundary(t *testing.T) {
	in := `{"type":"itinerary","days":[{"day":1,"theme":"시내"},{"day":2,"the`

	rec := Parse(in)
	if rec == nil {
		t.Fatal("day-boundary truncation should recover the complete days")
	}
	if !rec.Partial {
		t.Fatal("truncation repair must set the partial flag")
	}
	if len(rec.Days) != 1 || rec.Days[0].Day != 1 {
		t.Fatalf("days = %+v, want the single complete day", rec.Days)
	}
}

func TestParse_TruncationBeforeAnyCompleteObject(t *testing.T) {
	// No '}' ever arrived; there is nothing to cut back to.
	in := `{"type":"itinerary","days":[{"day":1,"activities":[{"title":"A"`
	if rec := Parse(in); rec != nil {
		t.Fatalf("Parse = %+v, want nil for unrepairable truncation", rec)
	}
}

func TestParse_TruncatedWithTrailingComma(t *testing.T) {
	in := `{"days":[{"day":1,"activities":[]},`
	rec := Parse(in)
	if rec == nil {
		t.Fatal("dangling comma after a complete day should repair")
	}
	if !rec.Partial || len(rec.Days) != 1 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestParse_TrailingCommaOnlyIsNotPartial(t *testing.T) {
	rec := Parse(`{"days":[{"day":1,"activities":[]},]}`)
	if rec == nil {
		t.Fatal("trailing comma should be stripped")
	}
	if rec.Partial {
		t.Fatal("comma repair alone is not truncation")
	}
}

func TestParse_Deterministic(t *testing.T) {
	in := "수정본:\n```json\n" +
		`{"days":[{"day":1,"activities":[{"title":"A"}]},{"day":2,` +
		"\n"

	a := Parse(in)
	b := Parse(in)
	if (a == nil) != (b == nil) {
		t.Fatal("identical input produced different outcomes")
	}
	if a != nil {
		ja, _ := a.Marshal()
		jb, _ := b.Marshal()
		if string(ja) != string(jb) {
			t.Fatalf("non-deterministic recovery:\n%s\n%s", ja, jb)
		}
	}
}

func TestParse_RoundTripEquivalence(t *testing.T) {
	rec := Parse(`{"type":"itinerary","title":"부산 1일","days":[` +
		`{"day":1,"activities":[{"title":"해운대","category":"attraction","cost":"무료"}]}]}`)
	if rec == nil {
		t.Fatal("Parse returned nil")
	}

	blob, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again := Parse(string(blob))
	if again == nil {
		t.Fatal("re-parse of serialized record failed")
	}
	if again.Partial {
		t.Fatal("serialized record must not re-parse as partial")
	}
	blob2, err := again.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(blob) != string(blob2) {
		t.Fatalf("round trip not stable:\n%s\n%s", blob, blob2)
	}
}

func TestValidActivityCategory(t *testing.T) {
	for _, c := range []string{"transport", "restaurant", "attraction", "shopping", "activity", "rest"} {
		if !domain.ValidActivityCategory(c) {
			t.Errorf("%q should be valid", c)
		}
	}
	for _, c := range []string{"", "food", "ATTRACTION", "sleep"} {
		if domain.ValidActivityCategory(c) {
			t.Errorf("%q should be invalid", c)
		}
	}
}
