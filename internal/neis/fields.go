package neis

import "strings"

// Field is one column of the schoolInfo dataset.
type Field struct {
	Label string
	Code  string
}

// schoolFields is the schoolInfo column table, in upstream order.
var schoolFields = []Field{
	{"시도교육청코드", "ATPT_OFCDC_SC_CODE"},
	{"시도교육청명", "ATPT_OFCDC_SC_NM"},
	{"행정표준코드", "SD_SCHUL_CODE"},
	{"학교명", "SCHUL_NM"},
	{"영문학교명", "ENG_SCHUL_NM"},
	{"학교종류명", "SCHUL_KND_SC_NM"},
	{"시도명", "LCTN_SC_NM"},
	{"관할조직명", "JU_ORG_NM"},
	{"설립명", "FOND_SC_NM"},
	{"도로명우편번호", "ORG_RDNZC"},
	{"도로명주소", "ORG_RDNMA"},
	{"도로명상세주소", "ORG_RDNDA"},
	{"전화번호", "ORG_TELNO"},
	{"홈페이지주소", "HMPG_ADRES"},
	{"남녀공학구분명", "COEDU_SC_NM"},
	{"팩스번호", "ORG_FAXNO"},
	{"고등학교구분명", "HS_SC_NM"},
	{"산업체특별학급존재여부", "INDST_SPECL_CCCCL_EXST_YN"},
	{"고등학교일반전문구분명", "HS_GNRL_BUSNS_SC_NM"},
	{"특수목적고등학교계열명", "SPCLY_PURPS_HS_ORD_NM"},
	{"입시전후기구분명", "ENE_BFE_SEHF_SC_NM"},
	{"주야구분명", "DGHT_SC_NM"},
	{"설립일자", "FOND_YMD"},
	{"개교기념일", "FOAS_MEMRD"},
	{"수정일자", "LOAD_DTM"},
}

// fieldSynonyms maps common wordings to field codes.
var fieldSynonyms = map[string]string{
	"주소":      "ORG_RDNMA",
	"address": "ORG_RDNMA",
	"전화":      "ORG_TELNO",
	"연락처":     "ORG_TELNO",
	"phone":   "ORG_TELNO",
	"홈페이지":    "HMPG_ADRES",
	"website": "HMPG_ADRES",
	"팩스":      "ORG_FAXNO",
	"fax":     "ORG_FAXNO",
	"우편번호":    "ORG_RDNZC",
	"개교일":     "FOAS_MEMRD",
	"설립일":     "FOND_YMD",
	"이름":      "SCHUL_NM",
	"name":    "SCHUL_NM",
}

var (
	fieldsByCode  = make(map[string]Field, len(schoolFields))
	fieldsByLabel = make(map[string]Field, len(schoolFields))
)

func init() {
	for _, f := range schoolFields {
		fieldsByCode[f.Code] = f
		fieldsByLabel[f.Label] = f
	}
}

// SchoolFields returns a copy of the schoolInfo column table.
func SchoolFields() []Field {
	out := make([]Field, len(schoolFields))
	copy(out, schoolFields)
	return out
}

// LookupField resolves a Korean label, synonym or field code.
// Spaces are ignored and codes match case-insensitively.
func LookupField(name string) (Field, bool) {
	key := strings.Join(strings.Fields(name), "")
	if key == "" {
		return Field{}, false
	}
	if f, ok := fieldsByCode[strings.ToUpper(key)]; ok {
		return f, true
	}
	if f, ok := fieldsByLabel[key]; ok {
		return f, true
	}
	if code, ok := fieldSynonyms[strings.ToLower(key)]; ok {
		return fieldsByCode[code], true
	}
	return Field{}, false
}
