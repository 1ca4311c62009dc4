package fetch

import "net/http"

// Method is an HTTP verb understood by the primitives. The zero value selects
// the primitive's default (GET for Query, POST for Mutation).
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

func (m Method) or(def Method) Method {
	if m == "" {
		return def
	}
	return m
}

func (m Method) validForQuery() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

func (m Method) validForMutation() bool {
	switch m {
	case MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}
