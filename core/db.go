package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in `allowed`.
// Repositories must only ever build ORDER BY clauses from the returned slice.
func FilterOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	if len(orderings) == 0 {
		return nil
	}
	out := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, field := range allowed {
			if ord.Field == field {
				out = append(out, ord)
				break
			}
		}
	}
	return out
}
