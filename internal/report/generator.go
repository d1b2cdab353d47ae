// Package report turns a device's daily conversations into an HTML "thinking
// report" using an LLM provider, and stores one report per device and day.
package report

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/notexe/companion/internal/api"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/config"
)

// Generation outcomes stored in ai_reports.generation_status.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const systemPrompt = "你是一个专业的AI思维分析师，擅长分析对话并生成可视化报告。"

const promptTemplate = `你是一个专业的AI思维分析师。基于以下用户与AI的对话记录，生成一份包含4个部分的思维报告：

对话记录（%s，设备：%s）：
%s

请生成HTML格式的报告，包含以下4个部分：

1. **今日思维热点图** (Conversation Heatmap)
   - 使用词云或标签云展示对话主题
   - 列出出现频率最高的5个关键词

2. **关键概念网络** (Concept Network)
   - 提取对话中的3-5个关键概念
   - 展示概念之间的关联关系

3. **思维模式小奖章** (Thinking Medals)
   - 颁发3个有趣的思维亮点奖章
   - 每个奖章包含：名称、描述、获得的对话片段引用

4. **给明天的挑战** (Growth Challenges)
   - 基于对话内容，提出3个成长建议
   - 每个挑战包含：标题、具体建议、可执行步骤

要求：
- 使用HTML + CSS（内联样式）实现
- 使用响应式设计（适配移动端）
- 使用emoji或图标增强可读性
- 色彩搭配友好（避免过于鲜艳）
- 所有内容基于真实对话，不要编造

现在请生成报告（仅返回HTML内容，不要其他说明文字）：`

// Result is a rendered report page.
type Result struct {
	HTML   string
	Status string
	Err    error
}

// Generator renders reports with an LLM provider. Provider calls share a
// rate limiter so nightly batches do not trip upstream quotas.
type Generator struct {
	provider api.Provider
	model    config.ModelSettings
	limiter  *rate.Limiter
	log      *logrus.Logger
}

// NewGenerator creates a generator. A nil limiter means no limit.
func NewGenerator(provider api.Provider, model config.ModelSettings, limiter *rate.Limiter, log *logrus.Logger) *Generator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{provider: provider, model: model, limiter: limiter, log: log}
}

// NewLimiter allows perMinute provider calls per minute with the given burst.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), max(burst, 1))
}

// Generate renders the report for msgs. With no messages it renders the
// empty-day page; a provider failure renders the error page with status
// failed.
func (g *Generator) Generate(ctx context.Context, msgs []chat.Message, date, deviceName string) Result {
	if len(msgs) == 0 {
		return Result{HTML: render("empty", pageData{Date: date}), Status: StatusSuccess}
	}

	body, err := g.ask(ctx, buildConversation(msgs), date, deviceName)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"date":     date,
			"device":   deviceName,
			"provider": g.provider.Name(),
		}).WithError(err).Error("report generation failed")
		return Result{
			HTML:   render("error", pageData{Date: date, Error: err.Error()}),
			Status: StatusFailed,
			Err:    err,
		}
	}

	return Result{
		HTML:   render("full", pageData{Date: date, DeviceName: deviceName, Body: template.HTML(body)}),
		Status: StatusSuccess,
	}
}

func (g *Generator) ask(ctx context.Context, conversation, date, deviceName string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	req := api.UserMessage(systemPrompt, fmt.Sprintf(promptTemplate, date, deviceName, conversation))
	req.Model = g.model.Name
	req.MaxTokens = g.model.MaxTokens
	req.Temperature = g.model.Temperature

	resp, err := g.provider.SendMessage(ctx, req)
	if err != nil {
		return "", err
	}

	body := CleanCodeFence(resp.Content)
	if body == "" {
		return "", api.ErrEmptyResponse
	}
	return body, nil
}

// buildConversation numbers each exchange for the prompt.
func buildConversation(msgs []chat.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		fmt.Fprintf(&b, "对话%d:\n  用户: %s\n  AI: %s\n\n", i+1, m.UserText, m.AIText)
	}
	return b.String()
}

// CleanCodeFence strips a markdown code fence wrapped around model output.
func CleanCodeFence(content string) string {
	content = strings.TrimSpace(content)

	content = strings.TrimPrefix(content, "```html")
	content = strings.TrimPrefix(content, "```")

	content = strings.TrimSuffix(content, "```")

	return strings.TrimSpace(content)
}
