package preference

import (
	"reflect"
	"testing"
)

func TestToggleLanguageParity(t *testing.T) {
	tests := []struct {
		name    string
		toggles int
		want    bool
	}{
		{name: "single toggle inserts", toggles: 1, want: true},
		{name: "double toggle removes", toggles: 2, want: false},
		{name: "triple toggle inserts", toggles: 3, want: true},
		{name: "four toggles removes", toggles: 4, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWizard()
			for i := 0; i < tt.toggles; i++ {
				w.ToggleLanguage("go")
			}

			got := false
			for _, lang := range w.Snapshot().Languages {
				if lang == "go" {
					got = true
				}
			}
			if got != tt.want {
				t.Fatalf("after %d toggles membership = %v, want %v", tt.toggles, got, tt.want)
			}
		})
	}
}

func TestToggleLanguageIndependentValues(t *testing.T) {
	w := NewWizard()
	w.ToggleLanguage("go")
	w.ToggleLanguage("rust")
	w.ToggleLanguage("go")

	langs := w.Snapshot().Languages
	if !reflect.DeepEqual(langs, []string{"rust"}) {
		t.Fatalf("expected [rust], got %v", langs)
	}
}

func TestAddSkillFirstWriteWins(t *testing.T) {
	w := NewWizard()
	w.AddSkill("python", FamiliarityBeginner)
	w.AddSkill("python", FamiliarityExpert)

	skills := w.SubmittableSkills()
	if len(skills) != 1 {
		t.Fatalf("expected single skill, got %d", len(skills))
	}
	if skills[0].Familiarity != FamiliarityBeginner {
		t.Fatalf("expected first familiarity retained, got %s", skills[0].Familiarity)
	}
}

func TestAddSkillIgnoresInvalidFamiliarity(t *testing.T) {
	w := NewWizard()
	w.AddSkill("python", Familiarity("wizard-level"))

	if len(w.SubmittableSkills()) != 0 {
		t.Fatalf("expected invalid familiarity to be ignored")
	}
}

func TestUpdateSkillFamiliarity(t *testing.T) {
	w := NewWizard()
	w.AddSkill("go", FamiliarityBeginner)

	w.UpdateSkillFamiliarity("go", FamiliarityAdvanced)
	if got := w.SubmittableSkills()[0].Familiarity; got != FamiliarityAdvanced {
		t.Fatalf("expected advanced, got %s", got)
	}

	// Absent identifiers and invalid grades are no-ops.
	w.UpdateSkillFamiliarity("cobol", FamiliarityExpert)
	w.UpdateSkillFamiliarity("go", Familiarity("supreme"))

	skills := w.SubmittableSkills()
	if len(skills) != 1 || skills[0].Familiarity != FamiliarityAdvanced {
		t.Fatalf("unexpected skills after no-op updates: %+v", skills)
	}
}

func TestRemoveSkill(t *testing.T) {
	w := NewWizard()
	w.AddSkill("go", FamiliarityBeginner)
	w.AddSkill("rust", FamiliarityIntermediate)

	w.RemoveSkill("go")
	w.RemoveSkill("go")

	skills := w.SubmittableSkills()
	if len(skills) != 1 || skills[0].Name != "rust" {
		t.Fatalf("expected only rust to remain, got %+v", skills)
	}
}

func TestNextStepSaturates(t *testing.T) {
	w := NewWizard()
	for i := 0; i < TotalSteps+5; i++ {
		w.NextStep()
	}
	if w.Step() != TotalSteps {
		t.Fatalf("expected step %d, got %d", TotalSteps, w.Step())
	}
}

func TestPrevStepSaturatesAtZero(t *testing.T) {
	w := NewWizard()
	for i := 0; i < 3; i++ {
		w.PrevStep()
	}
	if w.Step() != 0 {
		t.Fatalf("expected step 0, got %d", w.Step())
	}

	w.SetStep(StepSkills)
	for i := 0; i < 10; i++ {
		w.PrevStep()
	}
	if w.Step() != 0 {
		t.Fatalf("expected step 0 after draining, got %d", w.Step())
	}
}

func TestSetStepUnconditional(t *testing.T) {
	w := NewWizard()
	w.SetStep(StepConnect)
	if w.Step() != StepConnect {
		t.Fatalf("expected step %d, got %d", StepConnect, w.Step())
	}
}

func TestToggleInterestsIgnoreUnknownTags(t *testing.T) {
	w := NewWizard()
	w.ToggleIssueInterest(IssueInterest("yak_shaving"))
	w.ToggleProjectInterest(ProjectInterest("time_travel"))

	snap := w.Snapshot()
	if len(snap.IssueInterests) != 0 || len(snap.ProjectInterests) != 0 {
		t.Fatalf("unknown tags must be ignored, got %+v", snap)
	}
}

func TestToggleInterestsIndependentSets(t *testing.T) {
	w := NewWizard()
	w.ToggleIssueInterest(IssueInterestSecurity)
	w.ToggleProjectInterest(ProjectInterestSecurity)
	w.ToggleIssueInterest(IssueInterestSecurity)

	snap := w.Snapshot()
	if len(snap.IssueInterests) != 0 {
		t.Fatalf("issue interest should have toggled off, got %v", snap.IssueInterests)
	}
	if !reflect.DeepEqual(snap.ProjectInterests, []ProjectInterest{ProjectInterestSecurity}) {
		t.Fatalf("project interest should be untouched, got %v", snap.ProjectInterests)
	}
}

func TestResetPreferences(t *testing.T) {
	w := NewWizard()
	w.ToggleLanguage("go")
	w.AddSkill("go", FamiliarityExpert)
	w.ToggleIssueInterest(IssueInterestBugFix)
	w.ToggleProjectInterest(ProjectInterestCLI)
	w.SetStep(StepConnect)

	w.ResetPreferences()

	snap := w.Snapshot()
	if snap.Step != 0 {
		t.Fatalf("expected step 0 after reset, got %d", snap.Step)
	}
	if len(snap.Languages) != 0 || len(snap.Skills) != 0 ||
		len(snap.IssueInterests) != 0 || len(snap.ProjectInterests) != 0 {
		t.Fatalf("expected empty document after reset, got %+v", snap)
	}
}

func TestSubmittableSkillsOrderAndCategories(t *testing.T) {
	w := NewWizard()
	w.AddSkill("docker", FamiliarityIntermediate)
	w.AddSkill("go", FamiliarityExpert)
	w.AddSkill("homegrown-dsl", FamiliarityBeginner)

	got := w.SubmittableSkills()
	want := []Skill{
		{Name: "docker", Category: SkillCategoryDevOps, Familiarity: FamiliarityIntermediate},
		{Name: "go", Category: SkillCategoryProgrammingLanguage, Familiarity: FamiliarityExpert},
		{Name: "homegrown-dsl", Category: SkillCategoryOther, Familiarity: FamiliarityBeginner},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected projection:\n got %+v\nwant %+v", got, want)
	}
}

func TestObserversSeeConsistentSnapshots(t *testing.T) {
	w := NewWizard()

	var seen []Snapshot
	unsubscribe := w.Subscribe(func(s Snapshot) {
		seen = append(seen, s)
	})

	w.ToggleLanguage("go")
	w.AddSkill("go", FamiliarityAdvanced)

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if len(seen[0].Languages) != 1 || len(seen[0].Skills) != 0 {
		t.Fatalf("first snapshot inconsistent: %+v", seen[0])
	}
	if len(seen[1].Languages) != 1 || len(seen[1].Skills) != 1 {
		t.Fatalf("second snapshot inconsistent: %+v", seen[1])
	}

	// Snapshots are isolated from later mutations.
	w.ToggleLanguage("rust")
	if len(seen[1].Languages) != 1 {
		t.Fatalf("snapshot mutated after delivery: %+v", seen[1])
	}

	unsubscribe()
	count := len(seen)
	w.NextStep()
	if len(seen) != count {
		t.Fatalf("observer notified after unsubscribe")
	}
}

func TestNotifyOnNoopMutations(t *testing.T) {
	w := NewWizard()

	notified := 0
	w.Subscribe(func(Snapshot) { notified++ })

	w.RemoveSkill("absent")
	w.UpdateSkillFamiliarity("absent", FamiliarityBeginner)
	w.PrevStep()

	if notified != 3 {
		t.Fatalf("expected 3 notifications, got %d", notified)
	}
}
