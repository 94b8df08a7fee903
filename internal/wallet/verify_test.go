package wallet

import "testing"

func TestPickVerifyWords(t *testing.T) {
	mnemonic := "one two three four five six seven eight nine ten eleven twelve"
	words, err := PickVerifyWords(mnemonic, DefaultVerifyPositions)
	if err != nil {
		t.Fatalf("PickVerifyWords() error: %v", err)
	}

	want := []VerifyWord{{2, "three"}, {5, "six"}, {9, "ten"}}
	if len(words) != len(want) {
		t.Fatalf("got %d words, want %d", len(words), len(want))
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %+v, want %+v", i, words[i], want[i])
		}
	}

	if _, err := PickVerifyWords(mnemonic, []int{12}); err == nil {
		t.Error("out-of-range position should fail")
	}
}

func TestVerifyWords(t *testing.T) {
	mnemonic := "one two three four five six seven eight nine ten eleven twelve"
	positions := DefaultVerifyPositions

	ok := VerifyWords(mnemonic, positions, map[int]string{2: "three", 5: " SIX ", 9: "ten"})
	if !ok {
		t.Error("correct answers should verify")
	}
	if VerifyWords(mnemonic, positions, map[int]string{2: "three", 5: "six", 9: "nine"}) {
		t.Error("wrong answer should fail")
	}
	if VerifyWords(mnemonic, positions, map[int]string{2: "three", 5: "six"}) {
		t.Error("missing answer should fail")
	}
	if VerifyWords(mnemonic, nil, map[int]string{}) {
		t.Error("empty challenge should fail")
	}
	if !VerifyWords(mnemonic, []int{0, 11}, map[int]string{0: "one", 11: "twelve"}) {
		t.Error("custom positions should verify")
	}
}
