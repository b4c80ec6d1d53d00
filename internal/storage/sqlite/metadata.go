package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// GetCategories returns the group's category set.
func (s *SQLiteStore) GetCategories(ctx context.Context, groupID string) (*models.CategorySet, error) {
	set := &models.CategorySet{}
	var expense, income string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, expense, income, created_at, updated_at FROM categories WHERE group_id = ?`,
		groupID,
	).Scan(&set.ID, &set.GroupID, &expense, &income, &set.CreatedAt, &set.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("categories of %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	if err := json.Unmarshal([]byte(expense), &set.Expense); err != nil {
		return nil, fmt.Errorf("failed to decode expense categories: %w", err)
	}
	if err := json.Unmarshal([]byte(income), &set.Income); err != nil {
		return nil, fmt.Errorf("failed to decode income categories: %w", err)
	}
	if set.Expense == nil {
		set.Expense = []models.Category{}
	}
	if set.Income == nil {
		set.Income = []models.Category{}
	}
	return set, nil
}

// SaveCategories upserts the group's category set. set.ID and
// set.CreatedAt are updated to the stored record's.
func (s *SQLiteStore) SaveCategories(ctx context.Context, set *models.CategorySet) error {
	expense, income, err := encodeCategories(set)
	if err != nil {
		return err
	}
	now := time.Now().Unix()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories (id, group_id, expense, income, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(group_id) DO UPDATE SET expense = excluded.expense, income = excluded.income, updated_at = ?`,
		uuid.New().String(), set.GroupID, expense, income, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save categories: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM categories WHERE group_id = ?`, set.GroupID,
	).Scan(&set.ID, &set.CreatedAt, &set.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to read saved categories: %w", err)
	}
	return nil
}

func encodeCategories(set *models.CategorySet) (string, string, error) {
	expense, income := set.Expense, set.Income
	if expense == nil {
		expense = []models.Category{}
	}
	if income == nil {
		income = []models.Category{}
	}
	e, err := json.Marshal(expense)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode expense categories: %w", err)
	}
	i, err := json.Marshal(income)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode income categories: %w", err)
	}
	return string(e), string(i), nil
}

// ListMembers returns the group's member labels in creation order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, created_at FROM members WHERE group_id = ? ORDER BY created_at, rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// CreateMember persists a new member label.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	fillMember(member)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, group_id, name, created_at) VALUES (?, ?, ?, ?)`,
		member.ID, member.GroupID, member.Name, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// DeleteMember removes a member label from the group.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, memberID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM members WHERE id = ? AND group_id = ?", memberID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return expectOneRow(res, "member", memberID)
}

// ListAccounts returns the group's accounts in creation order.
func (s *SQLiteStore) ListAccounts(ctx context.Context, groupID string) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, icon, initial_balance, created_at
		 FROM accounts WHERE group_id = ? ORDER BY created_at, rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.GroupID, &a.Name, &a.Icon, &a.InitialBalance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount persists a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	fillAccount(account)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, group_id, name, icon, initial_balance, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.GroupID, account.Name, account.Icon, account.InitialBalance.String(), account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account from the group.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, groupID, accountID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ? AND group_id = ?", accountID, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(res, "account", accountID)
}

// SeedMetadata inserts the defaults the group does not have yet, in one
// transaction. Each insert is conditional on the group having no record of
// that kind.
func (s *SQLiteStore) SeedMetadata(ctx context.Context, groupID string, categories *models.CategorySet, member *models.Member, account *models.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if categories != nil {
		expense, income, err := encodeCategories(categories)
		if err != nil {
			return err
		}
		if categories.CreatedAt == 0 {
			categories.CreatedAt = time.Now().Unix()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO categories (id, group_id, expense, income, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(group_id) DO NOTHING`,
			uuid.New().String(), groupID, expense, income, categories.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
	}

	if member != nil {
		fillMember(member)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (id, group_id, name, created_at)
			 SELECT ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM members WHERE group_id = ?)`,
			member.ID, groupID, member.Name, member.CreatedAt, groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed member: %w", err)
		}
	}

	if account != nil {
		fillAccount(account)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO accounts (id, group_id, name, icon, initial_balance, created_at)
			 SELECT ?, ?, ?, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE group_id = ?)`,
			account.ID, groupID, account.Name, account.Icon, account.InitialBalance.String(), account.CreatedAt, groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func fillMember(m *models.Member) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
}

func fillAccount(a *models.Account) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
}
