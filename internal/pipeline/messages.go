package pipeline

import (
	"fmt"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// messages holds the localized progress and error texts streamed to the
// client. The markdown shape matches what downstream chat UIs render.
type messages struct {
	step1         string
	step2         func(n int) string
	step3         string
	step4         string
	step5         string
	step6         string
	summarizing   string
	clustering    string
	generating    string
	finalTitle    string
	errNoPapers   string
	errGeneration string
	errTimeout    func(seconds int) string
	errGeneral    func(err error) string
}

func messagesFor(lang domain.Language) *messages {
	if lang == domain.LanguageChinese {
		return &messages{
			step1:       "### 📝 步骤 1/6: 关键词提取与领域分析\n\n✅ 已完成\n\n",
			step2:       func(n int) string { return fmt.Sprintf("### 📚 步骤 2/6: 混合检索论文\n\n✅ 已检索到 %d 篇相关论文\n\n", n) },
			step3:       "### 🗂️ 步骤 3/6: 论文分类与筛选\n\n✅ 已完成\n\n",
			step4:       "### 📄 步骤 4/6: 论文内容总结\n\n",
			step5:       "### 🔍 步骤 5/6: 主题聚类与趋势分析\n\n",
			step6:       "### 📋 步骤 6/6: 生成文献综述\n\n",
			summarizing: "🔄 正在总结论文内容，请稍候...\n\n",
			clustering:  "🔄 正在进行主题聚类和趋势分析，请稍候...\n\n",
			generating:  "🔄 正在生成文献综述，请稍候...\n\n",
			finalTitle:  "## 📄 文献综述\n\n",
			errNoPapers: "## ❌ 错误\n\n未检索到相关论文，程序终止\n\n",
			errGeneration: "## ❌ 错误\n\n文献综述生成失败\n\n",
			errTimeout: func(seconds int) string {
				return fmt.Sprintf("## ❌ 超时错误\n\n请求处理超过 %d 秒，已自动终止\n\n", seconds)
			},
			errGeneral: func(err error) string {
				return fmt.Sprintf("## ❌ 错误\n\n程序执行失败: %v\n\n", err)
			},
		}
	}
	return &messages{
		step1: "### 📝 Step 1/6: Keyword Extraction and Domain Analysis\n\n✅ Completed\n\n",
		step2: func(n int) string {
			return fmt.Sprintf("### 📚 Step 2/6: Hybrid Paper Retrieval\n\n✅ Retrieved %d related papers\n\n", n)
		},
		step3:       "### 🗂️ Step 3/6: Paper Classification and Filtering\n\n✅ Completed\n\n",
		step4:       "### 📄 Step 4/6: Paper Content Summarization\n\n",
		step5:       "### 🔍 Step 5/6: Topic Clustering and Trend Analysis\n\n",
		step6:       "### 📋 Step 6/6: Literature Review Generation\n\n",
		summarizing: "🔄 Summarizing paper content, please wait...\n\n",
		clustering:  "🔄 Performing topic clustering and trend analysis, please wait...\n\n",
		generating:  "🔄 Generating literature review, please wait...\n\n",
		finalTitle:  "## 📄 Literature Review\n\n",
		errNoPapers: "## ❌ Error\n\nNo related papers found. Process terminated.\n\n",
		errGeneration: "## ❌ Error\n\nLiterature review generation failed\n\n",
		errTimeout: func(seconds int) string {
			return fmt.Sprintf("## ❌ Timeout Error\n\nRequest processing exceeded %d seconds. Automatically terminated.\n\n", seconds)
		},
		errGeneral: func(err error) string {
			return fmt.Sprintf("## ❌ Error\n\nProcess execution failed: %v\n\n", err)
		},
	}
}
