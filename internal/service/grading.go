package service

import (
	"math"

	"lms_backend/internal/model"
)

// GradeResult 一次评分的结果汇总
type GradeResult struct {
	Score    float64
	Correct  int
	Total    int
	Verdicts []model.AnswerVerdict
}

// GradeQuiz 对整套题目评分，纯函数，不访问存储。
// questions 为测验的全部题目（按出题顺序），answers 为题目ID到所选选项ID的映射，
// 漏答计为 INCORRECT；所选选项不属于该题时判为 INVALID_SELECTION，同样计为答错。
// 分母始终为题目总数，空卷得 0 分但仍视为已评分。
func GradeQuiz(questions []model.Question, optionsByQuestion map[uint][]model.Option, answers map[uint]uint) GradeResult {
	result := GradeResult{
		Total:    len(questions),
		Verdicts: make([]model.AnswerVerdict, 0, len(questions)),
	}

	for _, q := range questions {
		optionID, answered := answers[q.ID]
		if !answered {
			result.Verdicts = append(result.Verdicts, model.AnswerVerdict{
				QuestionID: q.ID,
				Verdict:    model.VerdictIncorrect,
			})
			continue
		}

		var chosen *model.Option
		for i := range optionsByQuestion[q.ID] {
			if optionsByQuestion[q.ID][i].ID == optionID {
				chosen = &optionsByQuestion[q.ID][i]
				break
			}
		}

		chosenID := optionID
		verdict := model.VerdictInvalidSelection
		if chosen != nil {
			verdict = model.VerdictIncorrect
			if chosen.Correct {
				verdict = model.VerdictCorrect
				result.Correct++
			}
		}

		result.Verdicts = append(result.Verdicts, model.AnswerVerdict{
			QuestionID: q.ID,
			OptionID:   &chosenID,
			Verdict:    verdict,
		})
	}

	if result.Total > 0 {
		result.Score = math.Round(float64(result.Correct)/float64(result.Total)*100*100) / 100
	}

	return result
}
