package preference

import (
	"strings"
	"time"
)

// Familiarity grades how comfortable a contributor is with a skill.
type Familiarity string

const (
	FamiliarityBeginner     Familiarity = "beginner"
	FamiliarityIntermediate Familiarity = "intermediate"
	FamiliarityAdvanced     Familiarity = "advanced"
	FamiliarityExpert       Familiarity = "expert"
)

var AllFamiliarities = map[Familiarity]struct{}{
	FamiliarityBeginner:     {},
	FamiliarityIntermediate: {},
	FamiliarityAdvanced:     {},
	FamiliarityExpert:       {},
}

// Weight orders familiarity levels for ranking; higher is stronger. Unknown
// levels weigh zero.
func (f Familiarity) Weight() int {
	switch f {
	case FamiliarityExpert:
		return 4
	case FamiliarityAdvanced:
		return 3
	case FamiliarityIntermediate:
		return 2
	case FamiliarityBeginner:
		return 1
	default:
		return 0
	}
}

// SkillCategory groups catalog skills for recommendation scoring.
type SkillCategory string

const (
	SkillCategoryProgrammingLanguage SkillCategory = "programming_language"
	SkillCategoryFramework           SkillCategory = "framework"
	SkillCategoryTool                SkillCategory = "tool"
	SkillCategoryDatabase            SkillCategory = "database"
	SkillCategoryCloud               SkillCategory = "cloud"
	SkillCategoryDevOps              SkillCategory = "devops"
	SkillCategoryOther               SkillCategory = "other"
)

var AllSkillCategories = map[SkillCategory]struct{}{
	SkillCategoryProgrammingLanguage: {},
	SkillCategoryFramework:           {},
	SkillCategoryTool:                {},
	SkillCategoryDatabase:            {},
	SkillCategoryCloud:               {},
	SkillCategoryDevOps:              {},
	SkillCategoryOther:               {},
}

// IssueInterest tags the kind of change a contributor wants to work on.
type IssueInterest string

const (
	IssueInterestBugFix        IssueInterest = "bug_fix"
	IssueInterestFeature       IssueInterest = "feature"
	IssueInterestEnhancement   IssueInterest = "enhancement"
	IssueInterestOptimization  IssueInterest = "optimization"
	IssueInterestRefactor      IssueInterest = "refactor"
	IssueInterestTesting       IssueInterest = "testing"
	IssueInterestDocumentation IssueInterest = "documentation"
	IssueInterestAccessibility IssueInterest = "accessibility"
	IssueInterestSecurity      IssueInterest = "security"
	IssueInterestUIUX          IssueInterest = "ui_ux"
	IssueInterestDependency    IssueInterest = "dependency"
	IssueInterestCICD          IssueInterest = "ci_cd"
	IssueInterestCleanup       IssueInterest = "cleanup"
)

var AllIssueInterests = map[IssueInterest]struct{}{
	IssueInterestBugFix:        {},
	IssueInterestFeature:       {},
	IssueInterestEnhancement:   {},
	IssueInterestOptimization:  {},
	IssueInterestRefactor:      {},
	IssueInterestTesting:       {},
	IssueInterestDocumentation: {},
	IssueInterestAccessibility: {},
	IssueInterestSecurity:      {},
	IssueInterestUIUX:          {},
	IssueInterestDependency:    {},
	IssueInterestCICD:          {},
	IssueInterestCleanup:       {},
}

// ProjectInterest tags the kind of project a contributor wants to join.
type ProjectInterest string

const (
	ProjectInterestWebapp         ProjectInterest = "webapp"
	ProjectInterestMobile         ProjectInterest = "mobile"
	ProjectInterestDesktop        ProjectInterest = "desktop"
	ProjectInterestCLI            ProjectInterest = "cli"
	ProjectInterestAPI            ProjectInterest = "api"
	ProjectInterestLibrary        ProjectInterest = "library"
	ProjectInterestLLM            ProjectInterest = "llm"
	ProjectInterestML             ProjectInterest = "ml"
	ProjectInterestData           ProjectInterest = "data"
	ProjectInterestDevTools       ProjectInterest = "devtools"
	ProjectInterestGame           ProjectInterest = "game"
	ProjectInterestBlockchain     ProjectInterest = "blockchain"
	ProjectInterestIoT            ProjectInterest = "iot"
	ProjectInterestSecurity       ProjectInterest = "security"
	ProjectInterestAutomation     ProjectInterest = "automation"
	ProjectInterestInfrastructure ProjectInterest = "infrastructure"
)

var AllProjectInterests = map[ProjectInterest]struct{}{
	ProjectInterestWebapp:         {},
	ProjectInterestMobile:         {},
	ProjectInterestDesktop:        {},
	ProjectInterestCLI:            {},
	ProjectInterestAPI:            {},
	ProjectInterestLibrary:        {},
	ProjectInterestLLM:            {},
	ProjectInterestML:             {},
	ProjectInterestData:           {},
	ProjectInterestDevTools:       {},
	ProjectInterestGame:           {},
	ProjectInterestBlockchain:     {},
	ProjectInterestIoT:            {},
	ProjectInterestSecurity:       {},
	ProjectInterestAutomation:     {},
	ProjectInterestInfrastructure: {},
}

// skillCategories resolves catalog skill names to their category. Skills
// outside the catalog fall back to SkillCategoryOther.
var skillCategories = map[string]SkillCategory{
	"python":     SkillCategoryProgrammingLanguage,
	"javascript": SkillCategoryProgrammingLanguage,
	"typescript": SkillCategoryProgrammingLanguage,
	"go":         SkillCategoryProgrammingLanguage,
	"rust":       SkillCategoryProgrammingLanguage,
	"java":       SkillCategoryProgrammingLanguage,
	"cpp":        SkillCategoryProgrammingLanguage,
	"csharp":     SkillCategoryProgrammingLanguage,
	"ruby":       SkillCategoryProgrammingLanguage,
	"php":        SkillCategoryProgrammingLanguage,
	"swift":      SkillCategoryProgrammingLanguage,
	"kotlin":     SkillCategoryProgrammingLanguage,
	"react":      SkillCategoryFramework,
	"vue":        SkillCategoryFramework,
	"angular":    SkillCategoryFramework,
	"nextjs":     SkillCategoryFramework,
	"django":     SkillCategoryFramework,
	"fastapi":    SkillCategoryFramework,
	"spring":     SkillCategoryFramework,
	"express":    SkillCategoryFramework,
	"flask":      SkillCategoryFramework,
	"docker":     SkillCategoryDevOps,
	"kubernetes": SkillCategoryDevOps,
	"git":        SkillCategoryTool,
	"nginx":      SkillCategoryTool,
	"graphql":    SkillCategoryTool,
	"postgres":   SkillCategoryDatabase,
	"mongodb":    SkillCategoryDatabase,
	"redis":      SkillCategoryDatabase,
	"mysql":      SkillCategoryDatabase,
	"sqlite":     SkillCategoryDatabase,
	"aws":        SkillCategoryCloud,
	"gcp":        SkillCategoryCloud,
	"azure":      SkillCategoryCloud,
}

func CategoryForSkill(name string) SkillCategory {
	if category, ok := skillCategories[strings.ToLower(strings.TrimSpace(name))]; ok {
		return category
	}
	return SkillCategoryOther
}

// Skill pairs a skill name with its resolved category and familiarity grade.
type Skill struct {
	Name        string
	Category    SkillCategory
	Familiarity Familiarity
}

func NewSkill(name string, familiarity Familiarity) Skill {
	name = strings.TrimSpace(name)
	return Skill{
		Name:        name,
		Category:    CategoryForSkill(name),
		Familiarity: familiarity,
	}
}

// Record is one user's submitted preference document.
type Record struct {
	ID               string
	UserID           string
	Languages        []string
	Skills           []Skill
	IssueInterests   []IssueInterest
	ProjectInterests []ProjectInterest
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
