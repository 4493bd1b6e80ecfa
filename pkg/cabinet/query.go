package cabinet

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/kaleido-biosciences/cabinet-client/internal/constants"
)

// Operator is a named comparison applied to a field in a criteria query.
type Operator string

// Operators understood by the Cabinet criteria API.
const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpSpecified          Operator = "specified"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "notIn"
	OpGreaterThan        Operator = "greaterThan"
	OpLessThan           Operator = "lessThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpContains           Operator = "contains"
	OpDoesNotContain     Operator = "doesNotContain"
)

// Filter is one field constraint. An empty Operator means OpEquals.
type Filter struct {
	Field    string
	Operator Operator
	Value    string
}

// Equals returns an equality filter.
func Equals(field, value string) Filter {
	return Filter{Field: field, Operator: OpEquals, Value: value}
}

// Where returns a filter with an explicit operator.
func Where(field string, op Operator, value string) Filter {
	return Filter{Field: field, Operator: op, Value: value}
}

// EffectiveOperator returns the operator, defaulting to OpEquals.
func (f Filter) EffectiveOperator() Operator {
	if f.Operator == "" {
		return OpEquals
	}

	return f.Operator
}

// FilterSpec is an ordered list of filters. Order is preserved verbatim in
// the emitted query string.
type FilterSpec []Filter

// NewFilterSpec returns a spec holding filters in the given order.
func NewFilterSpec(filters ...Filter) FilterSpec {
	spec := make(FilterSpec, 0, len(filters))

	return append(spec, filters...)
}

// Equals returns a new spec with an equality filter appended. s is left
// untouched, so several specs can be derived from one base.
func (s FilterSpec) Equals(field, value string) FilterSpec {
	return append(slices.Clip(s), Equals(field, value))
}

// Where returns a new spec with a filter using op appended.
func (s FilterSpec) Where(field string, op Operator, value string) FilterSpec {
	return append(slices.Clip(s), Where(field, op, value))
}

// AsEquals returns a copy with every operator replaced by OpEquals.
func (s FilterSpec) AsEquals() FilterSpec {
	out := make(FilterSpec, len(s))
	for i, f := range s {
		out[i] = Equals(f.Field, f.Value)
	}

	return out
}

// PageRequest selects one page of results. The zero value asks for the first
// page with no practical size limit.
type PageRequest struct {
	Page int
	Size int
}

// Page returns a PageRequest for the given page and size.
func Page(page, size int) PageRequest {
	return PageRequest{Page: page, Size: size}
}

// FirstResult asks for a single result on the first page.
func FirstResult() PageRequest {
	return PageRequest{Page: constants.DefaultPage, Size: constants.FirstResultPageSize}
}

// Normalized clamps Page to zero and maps a non-positive Size to unbounded.
func (p PageRequest) Normalized() PageRequest {
	if p.Page < 0 {
		p.Page = constants.DefaultPage
	}

	if p.Size <= 0 {
		p.Size = constants.UnboundedPageSize
	}

	return p
}

func (p PageRequest) appendTo(parts []string) []string {
	p = p.Normalized()

	return append(parts,
		constants.QueryParamPage+"="+strconv.Itoa(p.Page),
		constants.QueryParamSize+"="+strconv.Itoa(p.Size),
	)
}

// Endpoint locates one resource type on the Cabinet API.
type Endpoint struct {
	BaseURI    string
	Resource   string
	SearchPath string
}

// NewEndpoint normalizes the base URI to end in a slash and trims slashes
// from the resource and search path.
func NewEndpoint(baseURI, resource, searchPath string) Endpoint {
	return Endpoint{
		BaseURI:    NormalizeBaseURI(baseURI),
		Resource:   strings.Trim(resource, "/"),
		SearchPath: strings.Trim(searchPath, "/"),
	}
}

// NormalizeBaseURI ensures the base URI ends with exactly one slash.
func NormalizeBaseURI(baseURI string) string {
	return strings.TrimRight(baseURI, "/") + "/"
}

// CollectionURI is the resource collection, used for listing and saving.
func (e Endpoint) CollectionURI() string {
	return e.BaseURI + e.Resource
}

// ItemURI addresses a single entity by identifier.
func (e Endpoint) ItemURI(id int64) string {
	return e.CollectionURI() + "/" + strconv.FormatInt(id, 10)
}

// MethodURI addresses a named lookup such as {resource}/label/{value}.
func (e Endpoint) MethodURI(method, value string) string {
	return e.CollectionURI() + "/" + strings.Trim(method, "/") + "/" + url.PathEscape(value)
}

// SaveAllURI is the bulk save sub-resource.
func (e Endpoint) SaveAllURI() string {
	return e.CollectionURI() + "/" + constants.SaveAllPath
}

// FilterURI renders the filters in order, followed by paging.
func (e Endpoint) FilterURI(spec FilterSpec, page PageRequest) string {
	return e.CollectionURI() + "?" + FilterQuery(spec, page)
}

// EqualsURI is FilterURI for a single equality filter.
func (e Endpoint) EqualsURI(field, value string, page PageRequest) string {
	return e.FilterURI(NewFilterSpec(Equals(field, value)), page)
}

// OperatorURI is FilterURI for a single filter with an explicit operator.
func (e Endpoint) OperatorURI(field, value string, op Operator, page PageRequest) string {
	return e.FilterURI(NewFilterSpec(Where(field, op, value)), page)
}

// SearchURI addresses the free-text search endpoint for the resource.
func (e Endpoint) SearchURI(term string, page PageRequest) string {
	parts := []string{constants.QueryParamQuery + "=" + EncodeQueryValue(term)}

	return e.BaseURI + e.SearchPath + "/" + e.Resource + "?" + strings.Join(page.appendTo(parts), "&")
}

// FilterQuery renders field.operator=value pairs in order, then page and size.
func FilterQuery(spec FilterSpec, page PageRequest) string {
	parts := make([]string, 0, len(spec)+2)
	for _, f := range spec {
		parts = append(parts, EncodeQueryValue(f.Field)+"."+string(f.EffectiveOperator())+"="+EncodeQueryValue(f.Value))
	}

	return strings.Join(page.appendTo(parts), "&")
}

// EncodeQueryValue form-encodes v with spaces as %20, so a literal plus
// (%2B) can never be confused with an encoded space.
func EncodeQueryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
