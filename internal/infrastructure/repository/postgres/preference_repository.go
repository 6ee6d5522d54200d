package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/openquest/onboarding-api/internal/domain/preference"
	qb "github.com/openquest/onboarding-api/internal/platform/querybuilder"
)

type PreferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID string) (preference.Record, bool, error) {
	query, args, err := qb.Select("*").
		From("user_preferences").
		Where(
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return preference.Record{}, false, fmt.Errorf("build get preference record query: %w", err)
	}

	var row preferenceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return preference.Record{}, false, nil
		}
		return preference.Record{}, false, fmt.Errorf("get preference record: %w", err)
	}

	record, err := preferenceFromRow(row)
	if err != nil {
		return preference.Record{}, false, err
	}

	return record, true, nil
}

func (r *PreferenceRepository) Create(ctx context.Context, record preference.Record) error {
	skills, err := encodeSkills(record.Skills)
	if err != nil {
		return err
	}

	insertModel := preferenceInsertModel{
		PublicID:         record.ID,
		UserID:           strings.TrimSpace(record.UserID),
		Languages:        pq.StringArray(record.Languages),
		Skills:           skills,
		IssueInterests:   issueInterestsToArray(record.IssueInterests),
		ProjectInterests: projectInterestsToArray(record.ProjectInterests),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}

	query, args, err := qb.InsertModel("user_preferences", insertModel, "")
	if err != nil {
		return fmt.Errorf("build create preference record query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user_id=%s", preference.ErrRecordExists, record.UserID)
		}
		return fmt.Errorf("create preference record: %w", err)
	}

	return nil
}

func (r *PreferenceRepository) Update(ctx context.Context, record preference.Record) error {
	skills, err := encodeSkills(record.Skills)
	if err != nil {
		return err
	}

	query, args, err := qb.Update("user_preferences").
		Set("languages", pq.StringArray(record.Languages)).
		Set("skills", skills).
		Set("issue_interests", issueInterestsToArray(record.IssueInterests)).
		Set("project_interests", projectInterestsToArray(record.ProjectInterests)).
		Set("updated_at", record.UpdatedAt).
		Where(
			qb.Eq("user_id", record.UserID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update preference record query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update preference record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update preference record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update preference record: not found")
	}

	return nil
}

func (r *PreferenceRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	query, args, err := qb.Update("user_preferences").
		SetExpr("deleted_at", "NOW()").
		Where(
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete preference record query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete preference record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected delete preference record: %w", err)
	}

	return affected > 0, nil
}

func preferenceFromRow(row preferenceTableModel) (preference.Record, error) {
	skills, err := decodeSkills(row.Skills)
	if err != nil {
		return preference.Record{}, err
	}

	return preference.Record{
		ID:               row.PublicID,
		UserID:           row.UserID,
		Languages:        []string(row.Languages),
		Skills:           skills,
		IssueInterests:   issueInterestsFromArray(row.IssueInterests),
		ProjectInterests: projectInterestsFromArray(row.ProjectInterests),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func encodeSkills(skills []preference.Skill) (string, error) {
	docs := make([]skillDocument, 0, len(skills))
	for _, skill := range skills {
		docs = append(docs, skillDocument{
			Name:        skill.Name,
			Category:    string(skill.Category),
			Familiarity: string(skill.Familiarity),
		})
	}

	raw, err := sonic.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}

	return string(raw), nil
}

func decodeSkills(raw string) ([]preference.Skill, error) {
	if strings.TrimSpace(raw) == "" {
		return []preference.Skill{}, nil
	}

	var docs []skillDocument
	if err := sonic.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}

	skills := make([]preference.Skill, 0, len(docs))
	for _, doc := range docs {
		skills = append(skills, preference.Skill{
			Name:        doc.Name,
			Category:    preference.SkillCategory(doc.Category),
			Familiarity: preference.Familiarity(doc.Familiarity),
		})
	}

	return skills, nil
}

func issueInterestsToArray(values []preference.IssueInterest) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func issueInterestsFromArray(values pq.StringArray) []preference.IssueInterest {
	out := make([]preference.IssueInterest, 0, len(values))
	for _, v := range values {
		out = append(out, preference.IssueInterest(v))
	}
	return out
}

func projectInterestsToArray(values []preference.ProjectInterest) pq.StringArray {
	out := make(pq.StringArray, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func projectInterestsFromArray(values pq.StringArray) []preference.ProjectInterest {
	out := make([]preference.ProjectInterest, 0, len(values))
	for _, v := range values {
		out = append(out, preference.ProjectInterest(v))
	}
	return out
}
