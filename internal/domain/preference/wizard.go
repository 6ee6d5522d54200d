package preference

import "strings"

// Step indices of the onboarding flow. StepComplete is the terminal step.
const (
	StepWelcome          = 0
	StepLanguages        = 1
	StepSkills           = 2
	StepIssueInterests   = 3
	StepProjectInterests = 4
	StepConnect          = 5
	StepComplete         = 6

	TotalSteps = StepComplete
)

// Snapshot is a consistent read model of the wizard state. All slices are
// copies owned by the receiver.
type Snapshot struct {
	Step             int
	Languages        []string
	Skills           []Skill
	IssueInterests   []IssueInterest
	ProjectInterests []ProjectInterest
}

// Observer receives the post-mutation snapshot. Observers run synchronously
// before the mutating call returns.
type Observer func(Snapshot)

// Wizard accumulates one onboarding session's preferences and owns the step
// cursor. Mutating operations are total: unknown identifiers and values
// outside their enum are ignored rather than rejected. Every mutating call
// notifies observers with the post-call snapshot, including calls that leave
// the state unchanged. A Wizard is not safe for concurrent use; callers
// serialize access per session.
type Wizard struct {
	step             int
	languages        []string
	skills           map[string]Familiarity
	skillOrder       []string
	issueInterests   []IssueInterest
	projectInterests []ProjectInterest

	subs      []subscription
	nextSubID int
}

type subscription struct {
	id int
	fn Observer
}

func NewWizard() *Wizard {
	return &Wizard{skills: make(map[string]Familiarity)}
}

// Subscribe registers an observer and returns its unsubscribe func.
func (w *Wizard) Subscribe(fn Observer) func() {
	w.nextSubID++
	id := w.nextSubID
	w.subs = append(w.subs, subscription{id: id, fn: fn})

	return func() {
		for i, sub := range w.subs {
			if sub.id == id {
				w.subs = append(w.subs[:i], w.subs[i+1:]...)
				return
			}
		}
	}
}

func (w *Wizard) Step() int {
	return w.step
}

// SetStep assigns the cursor without clamping. Callers supply a valid step;
// next and prev are the saturating paths.
func (w *Wizard) SetStep(step int) {
	w.step = step
	w.notify()
}

// NextStep advances the cursor, saturating at the terminal step.
func (w *Wizard) NextStep() {
	if w.step < TotalSteps {
		w.step++
	}
	w.notify()
}

// PrevStep moves the cursor back, saturating at zero.
func (w *Wizard) PrevStep() {
	if w.step > 0 {
		w.step--
	}
	w.notify()
}

// ToggleLanguage removes the language when present, inserts it when absent.
func (w *Wizard) ToggleLanguage(lang string) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		w.notify()
		return
	}

	for i, existing := range w.languages {
		if existing == lang {
			w.languages = append(w.languages[:i], w.languages[i+1:]...)
			w.notify()
			return
		}
	}

	w.languages = append(w.languages, lang)
	w.notify()
}

// AddSkill inserts a skill with the given familiarity. The first write wins:
// an existing entry keeps its familiarity. Invalid familiarity grades are
// ignored.
func (w *Wizard) AddSkill(name string, familiarity Familiarity) {
	name = strings.TrimSpace(name)
	if name == "" {
		w.notify()
		return
	}
	if _, ok := AllFamiliarities[familiarity]; !ok {
		w.notify()
		return
	}
	if _, exists := w.skills[name]; exists {
		w.notify()
		return
	}

	w.skills[name] = familiarity
	w.skillOrder = append(w.skillOrder, name)
	w.notify()
}

// RemoveSkill drops the entry when present.
func (w *Wizard) RemoveSkill(name string) {
	name = strings.TrimSpace(name)
	if _, exists := w.skills[name]; !exists {
		w.notify()
		return
	}

	delete(w.skills, name)
	for i, existing := range w.skillOrder {
		if existing == name {
			w.skillOrder = append(w.skillOrder[:i], w.skillOrder[i+1:]...)
			break
		}
	}
	w.notify()
}

// UpdateSkillFamiliarity replaces only the familiarity of an existing entry.
func (w *Wizard) UpdateSkillFamiliarity(name string, familiarity Familiarity) {
	name = strings.TrimSpace(name)
	if _, ok := AllFamiliarities[familiarity]; !ok {
		w.notify()
		return
	}
	if _, exists := w.skills[name]; !exists {
		w.notify()
		return
	}

	w.skills[name] = familiarity
	w.notify()
}

// ToggleIssueInterest flips membership of a known issue interest tag.
func (w *Wizard) ToggleIssueInterest(tag IssueInterest) {
	if _, ok := AllIssueInterests[tag]; !ok {
		w.notify()
		return
	}

	for i, existing := range w.issueInterests {
		if existing == tag {
			w.issueInterests = append(w.issueInterests[:i], w.issueInterests[i+1:]...)
			w.notify()
			return
		}
	}

	w.issueInterests = append(w.issueInterests, tag)
	w.notify()
}

// ToggleProjectInterest flips membership of a known project interest tag.
func (w *Wizard) ToggleProjectInterest(tag ProjectInterest) {
	if _, ok := AllProjectInterests[tag]; !ok {
		w.notify()
		return
	}

	for i, existing := range w.projectInterests {
		if existing == tag {
			w.projectInterests = append(w.projectInterests[:i], w.projectInterests[i+1:]...)
			w.notify()
			return
		}
	}

	w.projectInterests = append(w.projectInterests, tag)
	w.notify()
}

// ResetPreferences restores the empty document and moves the cursor to zero.
func (w *Wizard) ResetPreferences() {
	w.step = 0
	w.languages = nil
	w.skills = make(map[string]Familiarity)
	w.skillOrder = nil
	w.issueInterests = nil
	w.projectInterests = nil
	w.notify()
}

// SubmittableSkills projects the skill map into an ordered slice, first-add
// order, with categories resolved from the catalog. Pure read.
func (w *Wizard) SubmittableSkills() []Skill {
	out := make([]Skill, 0, len(w.skillOrder))
	for _, name := range w.skillOrder {
		out = append(out, NewSkill(name, w.skills[name]))
	}
	return out
}

// Snapshot returns a deep copy of the current state.
func (w *Wizard) Snapshot() Snapshot {
	return Snapshot{
		Step:             w.step,
		Languages:        append([]string(nil), w.languages...),
		Skills:           w.SubmittableSkills(),
		IssueInterests:   append([]IssueInterest(nil), w.issueInterests...),
		ProjectInterests: append([]ProjectInterest(nil), w.projectInterests...),
	}
}

func (w *Wizard) notify() {
	if len(w.subs) == 0 {
		return
	}
	snapshot := w.Snapshot()
	for _, sub := range w.subs {
		sub.fn(snapshot)
	}
}
