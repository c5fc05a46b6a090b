package openai

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// reasoningBlock 推理模型输出开头的思考块
var reasoningBlock = regexp2.MustCompile(
	`^\s*(?:<(think|thinking|thought|reasoning|reflection)>.*?</\1>|\[(THINKING|REASONING)\].*?\[/\2\])\s*`,
	regexp2.Singleline|regexp2.IgnoreCase,
)

// truncatedBlock 只有开始标记的思考块，通常是输出被截断
var truncatedBlock = regexp2.MustCompile(
	`^\s*<(think|thinking|thought|reasoning|reflection)>(?!.*</\1>).*$`,
	regexp2.Singleline|regexp2.IgnoreCase,
)

// answerBlock 包裹最终结果的标记，只保留内容
var answerBlock = regexp2.MustCompile(
	`^\s*<(answer|result|output)>(.*?)</\1>\s*$`,
	regexp2.Singleline|regexp2.IgnoreCase,
)

// StripReasoning 移除推理模型输出开头的思考过程
//
// 只处理开头的标记，避免误删译文中的相似内容。
func StripReasoning(content string) string {
	out := content
	for {
		next, err := reasoningBlock.Replace(out, "", 0, 1)
		if err != nil || next == out {
			break
		}
		out = next
	}

	if next, err := truncatedBlock.Replace(out, "", 0, 1); err == nil {
		out = next
	}

	if m, err := answerBlock.FindStringMatch(out); err == nil && m != nil {
		out = m.GroupByNumber(2).String()
	}

	return strings.TrimSpace(out)
}

// HasReasoning 判断输出是否以思考块开头
func HasReasoning(content string) bool {
	ok, err := reasoningBlock.MatchString(content)
	if err == nil && ok {
		return true
	}
	ok, err = truncatedBlock.MatchString(content)
	return err == nil && ok
}
