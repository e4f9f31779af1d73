// Package recommend suggests dishes to clients from their order history and the menu's contents.
package recommend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core/dish"
)

const (
	ModePopular = "popular"
	ModeHybrid  = "hybrid"

	DefaultWeight = 0.5
	DefaultLimit  = 10
)

type (
	Recommendation struct {
		dish.Dish
		Score float64 `json:"score"`
	}

	Result struct {
		Mode   string           `json:"mode"`
		Dishes []Recommendation `json:"dishes"`
	}
)

type (
	Repository interface {
		// OrderedQuantities returns how much of each dish every client ordered.
		OrderedQuantities(ctx context.Context) (Quantities, error)
		// RestaurantRatings returns the average review rating of every rated restaurant.
		RestaurantRatings(ctx context.Context) (map[string]float64, error)
	}

	Service interface {
		// Recommend fuses collaborative and content scores, weight going to the collaborative part.
		Recommend(ctx context.Context, userID string, weight float64, limit int) (Result, error)
	}

	service struct {
		repo    Repository
		dishSvc dish.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, dishSvc dish.Service) Service {
	return &service{repo: repo, dishSvc: dishSvc}
}

func (svc *service) Recommend(ctx context.Context, userID string, weight float64, limit int) (Result, error) {
	if weight < 0 || weight > 1 {
		weight = DefaultWeight
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	candidates, err := svc.dishSvc.ListAvailable(ctx, new(dish.QueryFilter), userID)
	if err != nil {
		return Result{}, errors.Wrap(err, "listing available dishes")
	}
	qties, err := svc.repo.OrderedQuantities(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading order history")
	}

	if len(qties[userID]) == 0 {
		return svc.popular(candidates, qties, limit), nil
	}

	ratings, err := svc.repo.RestaurantRatings(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading restaurant ratings")
	}

	mine := qties[userID]
	orderedIDs := make([]string, 0, len(mine))
	for id := range mine {
		orderedIDs = append(orderedIDs, id)
	}
	orderedDishes, err := svc.dishSvc.GetMany(ctx, orderedIDs)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading ordered dishes")
	}
	ordered := make([]featureSet, 0, len(orderedDishes))
	for _, d := range orderedDishes {
		ordered = append(ordered, features(d.Tags, d.Ingredients))
	}

	collab := qties.collaborative(userID)
	byID := make(map[string]dish.Dish, len(candidates))
	items := make([]scored, 0, len(candidates))
	for _, d := range candidates {
		byID[d.ID] = d
		var content float64
		if _, done := mine[d.ID]; !done {
			content = contentScore(features(d.Tags, d.Ingredients), ordered)
		}
		score := weight*collab[d.ID] + (1-weight)*content
		rating, rated := ratings[d.RestaurantID]
		score *= feedbackBoost(rating, rated)
		if score > 0 {
			items = append(items, scored{id: d.ID, name: d.Name, score: score})
		}
	}

	if len(items) == 0 {
		res := svc.popular(candidates, qties, limit)
		res.Mode = ModeHybrid
		return res, nil
	}
	return Result{Mode: ModeHybrid, Dishes: build(rank(items, limit), byID)}, nil
}

func (svc *service) popular(candidates []dish.Dish, qties Quantities, limit int) Result {
	totals := qties.popularity()
	byID := make(map[string]dish.Dish, len(candidates))
	items := make([]scored, 0, len(candidates))
	for _, d := range candidates {
		byID[d.ID] = d
		items = append(items, scored{id: d.ID, name: d.Name, score: totals[d.ID]})
	}
	return Result{Mode: ModePopular, Dishes: build(rank(items, limit), byID)}
}

func build(items []scored, byID map[string]dish.Dish) []Recommendation {
	recs := make([]Recommendation, 0, len(items))
	for _, it := range items {
		recs = append(recs, Recommendation{Dish: byID[it.id], Score: it.score})
	}
	return recs
}
