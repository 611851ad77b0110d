package storage

import (
	"context"
	"fmt"

	"github.com/rubiojr/wsearch/pkg/search"
)

// SeedResult describes the demo content created by Seed.
type SeedResult struct {
	User      search.User
	Outsider  search.User
	Workspace search.Workspace
	Databases []int64
	Builder   int64
	Tables    []int64
	Rows      int
}

// Seed creates a demo workspace owned by demo@example.com: three databases, a
// builder, a dashboard and an automation, a "Customers" table with a few
// rows, and a second user that is not a member.
func (s *Store) Seed(ctx context.Context) (*SeedResult, error) {
	var res SeedResult
	var err error

	if res.User, err = s.CreateUser(ctx, "demo@example.com", "Demo User"); err != nil {
		return nil, err
	}
	if res.Outsider, err = s.CreateUser(ctx, "outsider@example.com", "Outsider"); err != nil {
		return nil, err
	}
	if res.Workspace, err = s.CreateWorkspace(ctx, "Demo Workspace"); err != nil {
		return nil, err
	}
	if err := s.AddMember(ctx, res.Workspace.ID, res.User.ID); err != nil {
		return nil, err
	}

	for i := 1; i <= 3; i++ {
		id, err := s.CreateApplication(ctx, res.Workspace.ID, KindDatabase, fmt.Sprintf("Database %d", i))
		if err != nil {
			return nil, err
		}
		res.Databases = append(res.Databases, id)
	}
	if res.Builder, err = s.CreateApplication(ctx, res.Workspace.ID, KindBuilder, "Test Builder"); err != nil {
		return nil, err
	}
	if _, err := s.CreateApplication(ctx, res.Workspace.ID, KindDashboard, "Sales Dashboard"); err != nil {
		return nil, err
	}
	if _, err := s.CreateApplication(ctx, res.Workspace.ID, KindAutomation, "Nightly Sync"); err != nil {
		return nil, err
	}

	customers, err := s.CreateTable(ctx, res.Databases[0], "Customers")
	if err != nil {
		return nil, err
	}
	orders, err := s.CreateTable(ctx, res.Databases[0], "Orders")
	if err != nil {
		return nil, err
	}
	res.Tables = []int64{customers, orders}

	name, err := s.CreateField(ctx, customers, Field{Name: "Name", Primary: true})
	if err != nil {
		return nil, err
	}
	city, err := s.CreateField(ctx, customers, Field{Name: "City", Description: "Where the customer is based"})
	if err != nil {
		return nil, err
	}
	notes, err := s.CreateField(ctx, customers, Field{Name: "Notes"})
	if err != nil {
		return nil, err
	}

	customerRows := []map[int64]string{
		{name: "Ada Lovelace", city: "London", notes: "Prefers email"},
		{name: "Grace Hopper", city: "New York", notes: "Loves compilers"},
		{name: "Alan Turing", city: "Manchester", notes: "Asked about the London office"},
		{name: "Katherine Johnson", city: "Hampton"},
	}
	for _, values := range customerRows {
		if _, err := s.CreateRow(ctx, customers, values); err != nil {
			return nil, err
		}
		res.Rows++
	}

	ref, err := s.CreateField(ctx, orders, Field{Name: "Reference", Primary: true})
	if err != nil {
		return nil, err
	}
	for _, r := range []string{"ORD-1001", "ORD-1002"} {
		if _, err := s.CreateRow(ctx, orders, map[int64]string{ref: r}); err != nil {
			return nil, err
		}
		res.Rows++
	}

	s.logger.Infof("seeded workspace %d with %d rows", res.Workspace.ID, res.Rows)
	return &res, nil
}
