package report

import (
	"html/template"
	"strings"
)

// pageData feeds every page template. Body is model output and is trusted.
type pageData struct {
	Date       string
	DeviceName string
	Body       template.HTML
	Error      string
}

var pages = template.Must(template.New("report").Parse(`{{define "full"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI思维报告 - {{.Date}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Microsoft YaHei", sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
        }
        .container {
            background: white;
            border-radius: 16px;
            padding: 30px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.1);
        }
        .header {
            text-align: center;
            margin-bottom: 30px;
            padding-bottom: 20px;
            border-bottom: 2px solid #f0f0f0;
        }
        .header h1 { color: #2c3e50; margin: 0 0 10px 0; font-size: 28px; }
        .header p { color: #7f8c8d; margin: 5px 0; font-size: 14px; }
        .content { line-height: 1.8; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>📊 AI思维报告</h1>
            <p>📅 {{.Date}}</p>
            <p>🤖 {{.DeviceName}}</p>
        </div>
        <div class="content">
            {{.Body}}
        </div>
    </div>
</body>
</html>
{{end}}

{{define "empty"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI思维报告 - {{.Date}}</title>
</head>
<body style="font-family: sans-serif; padding: 40px; text-align: center; background: #f5f5f5;">
    <div style="background: white; border-radius: 16px; padding: 40px; box-shadow: 0 4px 20px rgba(0,0,0,0.1);">
        <h2 style="color: #2c3e50;">📊 今日思维报告</h2>
        <p style="font-size: 18px; margin-top: 40px; color: #7f8c8d;">今天还没有对话记录</p>
        <p style="font-size: 14px; color: #95a5a6; margin-top: 20px;">明天再来查看吧~</p>
    </div>
</body>
</html>
{{end}}

{{define "error"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <title>报告生成失败</title>
</head>
<body style="font-family: sans-serif; padding: 40px; text-align: center; background: #fff5f5;">
    <div style="background: white; border-radius: 16px; padding: 40px; box-shadow: 0 4px 20px rgba(0,0,0,0.1);">
        <h2 style="color: #e74c3c;">⚠️ 报告生成失败</h2>
        <p style="font-size: 14px; margin-top: 20px; color: #7f8c8d;">错误信息：{{.Error}}</p>
        <p style="font-size: 12px; color: #95a5a6; margin-top: 10px;">请稍后重试</p>
    </div>
</body>
</html>
{{end}}`))

func render(name string, data pageData) string {
	var b strings.Builder
	_ = pages.ExecuteTemplate(&b, name, data)
	return b.String()
}
