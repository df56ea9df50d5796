package chat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
	"github.com/garyellow/chatshhs-go/internal/genai"
	"github.com/garyellow/chatshhs-go/internal/neis"
	"github.com/garyellow/chatshhs-go/internal/schooldate"
)

// ToolName is the single tool exposed to the model.
const ToolName = "get_school_info"

// MaxDates caps how many dates one tool call may request.
const MaxDates = 14

// SchoolInfoTool returns the tool declaration sent with the first completion.
func SchoolInfoTool() genai.Tool {
	kinds := make([]string, 0, len(neis.Kinds()))
	for _, k := range neis.Kinds() {
		kinds = append(kinds, k.String())
	}
	return genai.Tool{
		Name:        ToolName,
		Description: "서현고등학교의 급식, 시간표, 학사일정, 학교 정보를 NEIS에서 조회합니다.",
		Params: []genai.Param{
			{Name: "kind", Type: "string", Enum: kinds, Required: true,
				Description: "조회 종류: meal(급식), timetable(시간표), calendar(학사일정), school_info(학교 정보)"},
			{Name: "date", Type: "array", Items: "string",
				Description: "YYYYMMDD 형식 날짜 목록. school_info에는 넣지 않음"},
			{Name: "grade", Type: "integer", Description: "학년 (timetable)"},
			{Name: "class_number", Type: "integer", Description: "반 (timetable)"},
			{Name: "field", Type: "string", Description: "필요한 학교 정보 항목 (school_info), 예: 주소, 전화번호"},
		},
	}
}

// ToolArgs are the loosely typed arguments a model produced. Grade and
// ClassNumber keep the model's raw text ("" when absent) and are only
// converted for kinds that use them.
type ToolArgs struct {
	Kind        string
	Dates       []string
	Grade       string
	ClassNumber string
	Field       string
}

// ParseToolArgs decodes a raw JSON argument object. Dates may arrive as an
// array, a single string, or a comma-separated string. Older argument names
// are accepted.
func ParseToolArgs(raw string) (ToolArgs, error) {
	if !gjson.Valid(raw) {
		return ToolArgs{}, domerrors.NewValidationError("arguments", "not valid JSON")
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return ToolArgs{}, domerrors.NewValidationError("arguments", "not a JSON object")
	}

	var args ToolArgs
	args.Kind = strings.TrimSpace(first(root, "kind", "api_name").String())
	args.Field = strings.TrimSpace(first(root, "field", "info_type").String())
	args.Dates = splitDates(first(root, "date", "dates"))
	args.Grade = rawText(first(root, "grade"))
	args.ClassNumber = rawText(first(root, "class_number", "classnum", "class"))
	return args, nil
}

func rawText(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(r.Str)
	default:
		return r.Raw
	}
}

func first(root gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := root.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func splitDates(r gjson.Result) []string {
	var raw []string
	switch {
	case r.IsArray():
		for _, el := range r.Array() {
			raw = append(raw, scalarText(el))
		}
	case r.Type == gjson.String || r.Type == gjson.Number:
		raw = append(raw, scalarText(r))
	}

	var out []string
	for _, s := range raw {
		for _, tok := range strings.Split(s, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}

func scalarText(r gjson.Result) string {
	if r.Type == gjson.Number {
		return r.Raw
	}
	return r.String()
}

// coerceInt accepts "2", "2.0", "2학년" and "3반". Empty means absent.
func coerceInt(name, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	digits := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "학년"), "반"))
	if n, err := strconv.Atoi(digits); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, domerrors.NewValidationError(name, fmt.Sprintf("%q is not a number", s))
	}
	if f != math.Trunc(f) {
		return nil, domerrors.NewValidationError(name, "must be a whole number")
	}
	n := int(f)
	return &n, nil
}

// PrepareQuery turns model arguments into a validated NEIS request. Every
// date token is normalized against anchor; one unresolvable token fails the
// whole call. school_info ignores any dates the model supplied, and grade and
// class are only read for timetable.
func PrepareQuery(args ToolArgs, anchor time.Time) (neis.QueryRequest, error) {
	kind, err := neis.ParseKind(args.Kind)
	if err != nil {
		return neis.QueryRequest{}, err
	}

	req := neis.QueryRequest{Kind: kind}
	if !kind.NeedsDate() {
		req.Field = args.Field
		return req, req.Validate()
	}

	if len(args.Dates) > MaxDates {
		return neis.QueryRequest{}, domerrors.NewValidationError("date", fmt.Sprintf("at most %d dates per call", MaxDates))
	}
	for _, tok := range args.Dates {
		d, ok := schooldate.NormalizeToken(tok, anchor)
		if !ok {
			return neis.QueryRequest{}, domerrors.NewDateError(tok)
		}
		req.Dates = append(req.Dates, d)
	}
	if kind == neis.KindTimetable {
		if req.Grade, err = coerceInt("grade", args.Grade); err != nil {
			return neis.QueryRequest{}, err
		}
		if req.ClassNumber, err = coerceInt("class_number", args.ClassNumber); err != nil {
			return neis.QueryRequest{}, err
		}
	}
	return req, req.Validate()
}
