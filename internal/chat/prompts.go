package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyellow/chatshhs-go/internal/neis"
	"github.com/garyellow/chatshhs-go/internal/schooldate"
)

// systemPrompt builds the per-turn instruction anchored on today's date.
func systemPrompt(today time.Time) string {
	return fmt.Sprintf(`너는 서현고등학교 학생, 교직원, 학부모를 돕는 챗봇 ChatSHHS야. 지금까지의 대화 맥락을 보고 질문 의도를 파악해.

오늘 날짜: %s (%s)

"내일", "다음주 월요일" 같은 상대 날짜는 "%s" 같은 절대 날짜로 이미 바뀌어서 전달돼.

%s 도구 사용 규칙:
1. 급식, 시간표, 학사일정, 학교 기본 정보가 필요하면 반드시 %s를 호출해. 모르는 정보를 지어내지 마.
2. date는 YYYYMMDD 형식 문자열의 배열이야. 예: "12월 25일"은 "%d1225".
3. 여러 날짜를 물으면 date 배열에 모두 넣어.
4. kind 값:
   - meal: 급식
   - timetable: 시간표 (grade에 학년, class_number에 반)
   - calendar: 학사일정
   - school_info: 학교 정보 (date 없음, 필요한 항목은 field에)
5. 시간표 질문에 학년이나 반이 없으면 먼저 물어봐.

학교와 관계없는 질문에는 짧게 답해.`,
		schooldate.Compact(today), schooldate.WeekdayName(today),
		schooldate.Long(today),
		ToolName, ToolName, today.Year())
}

// answerInstruction constrains the second completion to the tool result.
const answerInstruction = `위 조회 결과만 근거로 질문에 답해. 결과에 없는 내용은 추측하지 마. error가 있으면 정보를 가져오지 못했다고 알려줘. 한 문단으로 짧게 답해.`

// fieldPrompt lists the school info columns for code translation.
func fieldPrompt() string {
	var b strings.Builder
	b.WriteString("다음은 학교 정보 항목과 코드 표야.\n\n")
	for _, f := range neis.SchoolFields() {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Code)
	}
	b.WriteString("\n요청한 정보에 해당하는 코드 하나만 출력해. 해당하는 항목이 없으면 NONE만 출력해.")
	return b.String()
}
