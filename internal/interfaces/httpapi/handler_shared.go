package httpapi

import (
	"context"
	"time"

	"github.com/openquest/onboarding-api/internal/domain/account"
	"github.com/openquest/onboarding-api/internal/domain/preference"
	"github.com/openquest/onboarding-api/internal/usecase"
)

type setStepRequest struct {
	Step int `json:"step" validate:"gte=0,lte=6"`
}

type toggleLanguageRequest struct {
	Language string `json:"language" validate:"required,max=40"`
}

type addSkillRequest struct {
	Name        string `json:"name" validate:"required,max=80"`
	Familiarity string `json:"familiarity" validate:"required,max=20"`
}

type updateSkillFamiliarityRequest struct {
	Familiarity string `json:"familiarity" validate:"required,max=20"`
}

type toggleInterestRequest struct {
	Interest string `json:"interest" validate:"required,max=40"`
}

type skillInputDTO struct {
	Name        string `json:"name" validate:"required,max=80"`
	Familiarity string `json:"familiarity" validate:"required,max=20"`
}

// submitPreferencesRequest carries either a session to source the wizard
// snapshot from or an explicit preference payload, never both.
type submitPreferencesRequest struct {
	SessionID        string          `json:"session_id" validate:"omitempty,max=64"`
	Languages        []string        `json:"languages" validate:"omitempty,dive,required,max=40"`
	Skills           []skillInputDTO `json:"skills" validate:"omitempty,dive"`
	IssueInterests   []string        `json:"issue_interests" validate:"omitempty,dive,required,max=40"`
	ProjectInterests []string        `json:"project_interests" validate:"omitempty,dive,required,max=40"`
}

// updatePreferencesRequest is a partial update: a field left out of the JSON
// stays untouched, an empty array clears the stored set.
type updatePreferencesRequest struct {
	Languages        *[]string        `json:"languages" validate:"omitempty,dive,required,max=40"`
	Skills           *[]skillInputDTO `json:"skills" validate:"omitempty,dive"`
	IssueInterests   *[]string        `json:"issue_interests" validate:"omitempty,dive,required,max=40"`
	ProjectInterests *[]string        `json:"project_interests" validate:"omitempty,dive,required,max=40"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionStateDTO struct {
	SessionID         string     `json:"session_id"`
	ExpiresAtUTC      string     `json:"expires_at_utc"`
	Step              int        `json:"step"`
	Languages         []string   `json:"languages"`
	Skills            []skillDTO `json:"skills"`
	IssueInterests    []string   `json:"issue_interests"`
	ProjectInterests  []string   `json:"project_interests"`
	SubmittableSkills []skillDTO `json:"submittable_skills"`
}

type skillDTO struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Familiarity string `json:"familiarity"`
}

type connectStatusDTO struct {
	SessionID string           `json:"session_id"`
	Phase     string           `json:"phase"`
	Connected bool             `json:"connected"`
	Username  string           `json:"username,omitempty"`
	LastError *connectErrorDTO `json:"last_error,omitempty"`
}

type connectErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type authorizationStartDTO struct {
	SessionID    string `json:"session_id"`
	AuthorizeURL string `json:"authorize_url"`
}

type preferenceRecordDTO struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Languages        []string   `json:"languages"`
	Skills           []skillDTO `json:"skills"`
	IssueInterests   []string   `json:"issue_interests"`
	ProjectInterests []string   `json:"project_interests"`
	CreatedAtUTC     string     `json:"created_at_utc"`
	UpdatedAtUTC     string     `json:"updated_at_utc"`
}

type authDTO struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         accountUserDTO `json:"user"`
}

type accountUserDTO struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	CreatedAtUTC string `json:"created_at_utc,omitempty"`
}

type principalDTO struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type recommendedRepoDTO struct {
	ID          int64    `json:"id"`
	FullName    string   `json:"full_name"`
	Description string   `json:"description,omitempty"`
	HTMLURL     string   `json:"html_url"`
	Language    string   `json:"language,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Stars       int      `json:"stars"`
	Forks       int      `json:"forks"`
	OpenIssues  int      `json:"open_issues"`
	PushedAtUTC string   `json:"pushed_at_utc,omitempty"`
	Score       int      `json:"score"`
}

type issueDTO struct {
	ID           int64    `json:"id"`
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	HTMLURL      string   `json:"html_url"`
	RepoFullName string   `json:"repo_full_name,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Comments     int      `json:"comments"`
	CreatedAtUTC string   `json:"created_at_utc,omitempty"`
}

type githubUserDTO struct {
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

func sessionStateToDTO(ctx context.Context, state usecase.SessionState) sessionStateDTO {
	ctx, span := startSpan(ctx, "httpapi.sessionStateToDTO")
	defer span.End()

	snap := state.Snapshot
	return sessionStateDTO{
		SessionID:         state.SessionID,
		ExpiresAtUTC:      formatTimeUTC(state.ExpiresAt),
		Step:              snap.Step,
		Languages:         append([]string{}, snap.Languages...),
		Skills:            skillsToDTO(snap.Skills),
		IssueInterests:    issueInterestsToStrings(snap.IssueInterests),
		ProjectInterests:  projectInterestsToStrings(snap.ProjectInterests),
		SubmittableSkills: skillsToDTO(state.Submittable),
	}
}

func connectStatusToDTO(ctx context.Context, status usecase.ConnectStatus) connectStatusDTO {
	ctx, span := startSpan(ctx, "httpapi.connectStatusToDTO")
	defer span.End()

	dto := connectStatusDTO{
		SessionID: status.SessionID,
		Phase:     string(status.Phase),
		Connected: status.Connected,
		Username:  status.Username,
	}
	if status.ErrorCode != "" {
		dto.LastError = &connectErrorDTO{
			Code:    string(status.ErrorCode),
			Message: status.ErrorMessage,
		}
	}
	return dto
}

func preferenceRecordToDTO(ctx context.Context, record preference.Record) preferenceRecordDTO {
	ctx, span := startSpan(ctx, "httpapi.preferenceRecordToDTO")
	defer span.End()

	return preferenceRecordDTO{
		ID:               record.ID,
		UserID:           record.UserID,
		Languages:        append([]string{}, record.Languages...),
		Skills:           skillsToDTO(record.Skills),
		IssueInterests:   issueInterestsToStrings(record.IssueInterests),
		ProjectInterests: projectInterestsToStrings(record.ProjectInterests),
		CreatedAtUTC:     formatTimeUTC(record.CreatedAt),
		UpdatedAtUTC:     formatTimeUTC(record.UpdatedAt),
	}
}

func authToDTO(ctx context.Context, auth account.Auth) authDTO {
	ctx, span := startSpan(ctx, "httpapi.authToDTO")
	defer span.End()

	return authDTO{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		TokenType:    auth.TokenType,
		ExpiresIn:    auth.ExpiresIn,
		User: accountUserDTO{
			ID:           auth.User.ID,
			Email:        auth.User.Email,
			CreatedAtUTC: formatOptionalTimeUTC(auth.User.CreatedAt),
		},
	}
}

func recommendedRepoToDTO(ctx context.Context, item usecase.RecommendedRepo) recommendedRepoDTO {
	ctx, span := startSpan(ctx, "httpapi.recommendedRepoToDTO")
	defer span.End()

	return recommendedRepoDTO{
		ID:          item.ID,
		FullName:    item.FullName,
		Description: item.Description,
		HTMLURL:     item.HTMLURL,
		Language:    item.Language,
		Topics:      append([]string(nil), item.Topics...),
		Stars:       item.Stars,
		Forks:       item.Forks,
		OpenIssues:  item.OpenIssues,
		PushedAtUTC: formatOptionalTimeUTC(item.PushedAt),
		Score:       item.Score,
	}
}

func recommendedReposToDTO(ctx context.Context, items []usecase.RecommendedRepo) []recommendedRepoDTO {
	ctx, span := startSpan(ctx, "httpapi.recommendedReposToDTO")
	defer span.End()

	out := make([]recommendedRepoDTO, 0, len(items))
	for _, item := range items {
		out = append(out, recommendedRepoToDTO(ctx, item))
	}
	return out
}

func issueToDTO(ctx context.Context, item usecase.ExternalIssue) issueDTO {
	ctx, span := startSpan(ctx, "httpapi.issueToDTO")
	defer span.End()

	return issueDTO{
		ID:           item.ID,
		Number:       item.Number,
		Title:        item.Title,
		HTMLURL:      item.HTMLURL,
		RepoFullName: item.RepoFullName,
		Labels:       append([]string(nil), item.Labels...),
		Comments:     item.Comments,
		CreatedAtUTC: formatOptionalTimeUTC(item.CreatedAt),
	}
}

func issuesToDTO(ctx context.Context, items []usecase.ExternalIssue) []issueDTO {
	ctx, span := startSpan(ctx, "httpapi.issuesToDTO")
	defer span.End()

	out := make([]issueDTO, 0, len(items))
	for _, item := range items {
		out = append(out, issueToDTO(ctx, item))
	}
	return out
}

func githubUserToDTO(ctx context.Context, user usecase.ExternalGitHubUser) githubUserDTO {
	ctx, span := startSpan(ctx, "httpapi.githubUserToDTO")
	defer span.End()

	return githubUserDTO{
		Login:       user.Login,
		Name:        user.Name,
		AvatarURL:   user.AvatarURL,
		ProfileURL:  user.ProfileURL,
		PublicRepos: user.PublicRepos,
		Followers:   user.Followers,
	}
}

func skillsToDTO(skills []preference.Skill) []skillDTO {
	out := make([]skillDTO, 0, len(skills))
	for _, skill := range skills {
		out = append(out, skillDTO{
			Name:        skill.Name,
			Category:    string(skill.Category),
			Familiarity: string(skill.Familiarity),
		})
	}
	return out
}

func skillInputsFromDTO(items []skillInputDTO) []usecase.SkillInput {
	out := make([]usecase.SkillInput, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.SkillInput{Name: item.Name, Familiarity: item.Familiarity})
	}
	return out
}

func skillInputsFromDomain(skills []preference.Skill) []usecase.SkillInput {
	out := make([]usecase.SkillInput, 0, len(skills))
	for _, skill := range skills {
		out = append(out, usecase.SkillInput{Name: skill.Name, Familiarity: string(skill.Familiarity)})
	}
	return out
}

func issueInterestsToStrings(interests []preference.IssueInterest) []string {
	out := make([]string, 0, len(interests))
	for _, interest := range interests {
		out = append(out, string(interest))
	}
	return out
}

func projectInterestsToStrings(interests []preference.ProjectInterest) []string {
	out := make([]string, 0, len(interests))
	for _, interest := range interests {
		out = append(out, string(interest))
	}
	return out
}

func formatTimeUTC(v time.Time) string {
	return v.UTC().Format(time.RFC3339)
}

func formatOptionalTimeUTC(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
