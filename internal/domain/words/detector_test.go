package words_test

import (
	"testing"

	words "github.com/typepulse/typepulse/internal/domain/words"
	. "github.com/smartystreets/goconvey/convey"
)

func typeWord(d *words.Detector, word string, startMS, gapMS int64) int64 {
	ts := startMS
	for _, r := range word {
		d.ProcessLetter(string(r), ts, "us")
		ts += gapMS
	}
	return ts - gapMS
}

func TestDetector_BoundaryFinalizesWord(t *testing.T) {
	Convey("Given letters h-e-l-l-o typed 100ms apart", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		last := typeWord(d, "hello", 1000, 100)

		Convey("When a space follows", func() {
			info := d.ProcessBoundary(last + 120)

			Convey("Then the word is finalized at the last letter's time", func() {
				So(info, ShouldNotBeNil)
				So(info.Word, ShouldEqual, "hello")
				So(info.NumLetters, ShouldEqual, 5)
				So(info.TotalDurationMS, ShouldEqual, 400)
				So(info.BackspaceCount, ShouldEqual, 0)
				So(info.EditingTimeMS, ShouldEqual, 0)
			})
		})
	})
}

func TestDetector_ShortWordsNotReported(t *testing.T) {
	Convey("Given a two-letter word and min length 3", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		last := typeWord(d, "of", 0, 100)

		Convey("Then the boundary reports nothing", func() {
			So(d.ProcessBoundary(last+50), ShouldBeNil)
		})
	})
}

func TestDetector_BackspaceEditing(t *testing.T) {
	Convey("Given 'teh' corrected to 'the'", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		d.ProcessLetter("t", 0, "us")
		d.ProcessLetter("e", 100, "us")
		d.ProcessLetter("h", 200, "us")
		So(d.ProcessBackspace(350), ShouldBeNil)
		So(d.ProcessBackspace(450), ShouldBeNil)
		d.ProcessLetter("h", 550, "us")
		d.ProcessLetter("e", 650, "us")

		Convey("When the word is finalized", func() {
			info := d.ProcessBoundary(700)

			Convey("Then backspaces and editing time are tracked separately", func() {
				So(info, ShouldNotBeNil)
				So(info.Word, ShouldEqual, "the")
				So(info.BackspaceCount, ShouldEqual, 2)
				// 150ms before the first backspace, 100ms before the second.
				So(info.EditingTimeMS, ShouldEqual, 250)
			})
		})
	})
}

func TestDetector_FullyErasedWordCloses(t *testing.T) {
	Convey("Given a word erased letter by letter", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		typeWord(d, "oops", 0, 100)
		So(d.ProcessBackspace(400), ShouldBeNil)
		So(d.ProcessBackspace(500), ShouldBeNil)
		So(d.ProcessBackspace(600), ShouldBeNil)
		last := d.ProcessBackspace(700)

		Convey("Then the final backspace closes the episode without a word", func() {
			// The word is empty at that point, below min length.
			So(last, ShouldBeNil)
			// And the detector is idle again.
			So(d.Flush(), ShouldBeNil)
		})
	})
}

func TestDetector_PauseSplitsWords(t *testing.T) {
	Convey("Given a 1000ms boundary timeout", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		typeWord(d, "first", 0, 100)

		Convey("When the next letter arrives after a 2s pause", func() {
			info := d.ProcessLetter("n", 2400, "us")

			Convey("Then the previous word is finalized", func() {
				So(info, ShouldNotBeNil)
				So(info.Word, ShouldEqual, "first")
			})
		})
	})
}

func TestDetector_ActiveDurationFloor(t *testing.T) {
	Convey("Given letters typed impossibly fast", t, func() {
		d := words.NewDetector(words.DefaultConfig())
		d.ProcessLetter("a", 0, "us")
		d.ProcessLetter("b", 1, "us")
		d.ProcessLetter("c", 2, "us")
		info := d.ProcessBoundary(10)

		Convey("Then the active duration is floored at 50ms per letter", func() {
			So(info, ShouldNotBeNil)
			So(info.ActiveDurationMS, ShouldEqual, 150)
		})
	})
}

func TestDetector_Reset(t *testing.T) {
	d := words.NewDetector(words.DefaultConfig())
	typeWord(d, "secret", 0, 100)
	d.Reset()
	if info := d.Flush(); info != nil {
		t.Fatalf("expected no word after reset, got %q", info.Word)
	}
}
