package httpapi

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

const defaultTransitionLimit = 50

func (s *Server) listItems(c *fiber.Ctx) error {
	var filter domain.ItemFilter
	if v := c.Query("ownership"); v != "" {
		o, err := domain.ParseOwnership(v)
		if err != nil {
			return err
		}
		filter.Ownership = o
	}
	if v := c.Query("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			return err
		}
		filter.Status = st
	}

	items, err := s.ports.Items.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, newItemView(&items[i]))
	}
	return c.JSON(views)
}

func (s *Server) getItem(c *fiber.Ctx) error {
	key, err := domain.ParseItemKey(c.Params("key"))
	if err != nil {
		return err
	}
	item, err := s.ports.Items.Get(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(newItemView(item))
}

func (s *Server) listTransitions(c *fiber.Ctx) error {
	key, err := domain.ParseItemKey(c.Params("key"))
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", defaultTransitionLimit)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	records, err := s.ports.Items.History(c.UserContext(), key, limit)
	if err != nil {
		return err
	}
	views := make([]transitionView, 0, len(records))
	for _, r := range records {
		views = append(views, newTransitionView(r))
	}
	return c.JSON(views)
}

func (s *Server) refreshItem(c *fiber.Ctx) error {
	key, err := domain.ParseItemKey(c.Params("key"))
	if err != nil {
		return err
	}
	result, err := s.ports.Single.Refresh(c.UserContext(), key)
	if err != nil {
		return err
	}

	view := newResultView(result)
	switch result.Kind {
	case domain.ResultSkipped:
		if errors.Is(result.Err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(view)
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(view)
	case domain.ResultFailed:
		return c.Status(fiber.StatusInternalServerError).JSON(view)
	default:
		return c.JSON(view)
	}
}

// startRefresh begins a bulk run that outlives the request. Its summary is
// read back through GET /api/refresh.
func (s *Server) startRefresh(c *fiber.Ctx) error {
	summaries, err := s.ports.Bulk.RefreshAll(context.Background())
	if err != nil {
		return err
	}
	go func() {
		for range summaries {
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(newProgressView(s.ports.Bulk.Progress(), nil))
}

func (s *Server) refreshStatus(c *fiber.Ctx) error {
	return c.JSON(newProgressView(s.ports.Bulk.Progress(), s.ports.Bulk.LastSummary()))
}

func (s *Server) cancelRefresh(c *fiber.Ctx) error {
	s.ports.Bulk.Cancel()
	return c.Status(fiber.StatusAccepted).JSON(newProgressView(s.ports.Bulk.Progress(), nil))
}

func (s *Server) backgroundStatus(c *fiber.Ctx) error {
	if s.ports.Status == nil {
		return fiber.ErrNotFound
	}
	ctx := c.UserContext()
	task, err := s.ports.Status.Task(ctx)
	if err != nil {
		return err
	}
	history, err := s.ports.Status.History(ctx, c.QueryInt("limit", 10))
	if err != nil {
		return err
	}
	return c.JSON(newBackgroundView(task, history))
}
