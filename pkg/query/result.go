package query

// Pagination describes where a page sits in the full result.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Meta echoes the sanitised request.
type Meta struct {
	SortBy    string                 `json:"sortBy"`
	SortOrder string                 `json:"sortOrder"`
	Filters   map[string]interface{} `json:"filters"`
}

// Result is one page of T.
type Result[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
	Meta       Meta       `json:"meta"`
}

// NewResult assembles a page from rows and the total matching count.
func NewResult[T any](data []T, total int, plan Plan) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + plan.Limit - 1) / plan.Limit
	}
	filters := plan.Filters
	if filters == nil {
		filters = map[string]interface{}{}
	}
	return Result[T]{
		Data: data,
		Pagination: Pagination{
			Page:       plan.Page,
			Limit:      plan.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    plan.Page < totalPages,
			HasPrev:    plan.Page > 1,
		},
		Meta: Meta{SortBy: plan.SortBy, SortOrder: plan.SortOrder, Filters: filters},
	}
}
