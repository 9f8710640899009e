package store

import (
	"context"
	"database/sql"
	"strings"

	"roofdesk/internal/domain"
)

// Typed list helpers for the HTTP API and CLI. The agent dispatcher works on
// generic rows; these exist where a fixed shape is wanted.

type LeadFilters struct {
	Status string
	Search string
	Limit  int
}

func (s Store) ListLeads(ctx context.Context, f LeadFilters) ([]domain.Lead, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR email LIKE ? OR address LIKE ?)")
		frag := "%" + f.Search + "%"
		args = append(args, frag, frag, frag)
	}
	query := `SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),status,COALESCE(source,''),COALESCE(notes,''),project_id,created_at,updated_at
FROM leads WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Lead
	for rows.Next() {
		var l domain.Lead
		var projectID sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Address, &l.Status, &l.Source, &l.Notes, &projectID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if projectID.Valid {
			l.ProjectID = &projectID.String
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (s Store) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),status,COALESCE(source,''),COALESCE(notes,''),project_id,created_at,updated_at FROM leads WHERE id=?`, id)
	var l domain.Lead
	var projectID sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Address, &l.Status, &l.Source, &l.Notes, &projectID, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if projectID.Valid {
		l.ProjectID = &projectID.String
	}
	return l, err
}

type ProjectFilters struct {
	Status string
	Search string
	Limit  int
}

func (s Store) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR address LIKE ? OR customer_name LIKE ?)")
		frag := "%" + f.Search + "%"
		args = append(args, frag, frag, frag)
	}
	query := `SELECT id,name,COALESCE(address,''),status,COALESCE(customer_name,''),COALESCE(customer_email,''),COALESCE(customer_phone,''),COALESCE(notes,''),created_at,updated_at
FROM projects WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Status, &p.CustomerName, &p.CustomerEmail, &p.CustomerPhone, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id,name,COALESCE(address,''),status,COALESCE(customer_name,''),COALESCE(customer_email,''),COALESCE(customer_phone,''),COALESCE(notes,''),created_at,updated_at FROM projects WHERE id=?`, id)
	var p domain.Project
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Status, &p.CustomerName, &p.CustomerEmail, &p.CustomerPhone, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

type InvoiceFilters struct {
	Status string
	Limit  int
}

func (s Store) ListInvoices(ctx context.Context, f InvoiceFilters) ([]domain.Invoice, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT id,number,project_id,amount,balance_due,status,COALESCE(due_date,''),created_at,updated_at
FROM invoices WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		var projectID sql.NullString
		if err := rows.Scan(&inv.ID, &inv.Number, &projectID, &inv.Amount, &inv.BalanceDue, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		if projectID.Valid {
			inv.ProjectID = &projectID.String
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}

func (s Store) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id,number,project_id,amount,balance_due,status,COALESCE(due_date,''),created_at,updated_at FROM invoices WHERE id=?`, id)
	var inv domain.Invoice
	var projectID sql.NullString
	err := row.Scan(&inv.ID, &inv.Number, &projectID, &inv.Amount, &inv.BalanceDue, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	if projectID.Valid {
		inv.ProjectID = &projectID.String
	}
	return inv, err
}

// EventsAfter returns events with id greater than afterID, oldest first.
// Webhook delivery pages through the log with it.
func (s Store) EventsAfter(ctx context.Context, limit int, afterID int64) ([]domain.Event, error) {
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id > ? ORDER BY id ASC`
	args := []any{afterID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (s Store) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
