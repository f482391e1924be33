package analysis

import (
	"fmt"
	"strings"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// Prompt builders. The wording is deliberately compact; review quality
// tuning happens on the model side, not here.

func keywordExtractionPrompt(q domain.Query) string {
	if q.Language == domain.LanguageChinese {
		return fmt.Sprintf("从以下研究查询中提取3-4个英文学术搜索关键词，用逗号分隔，只输出关键词：\n\n%s", q.Text)
	}
	return fmt.Sprintf("Extract 3-4 academic search keywords from the following research query. Output only the keywords, comma-separated:\n\n%s", q.Text)
}

func domainAnalysisPrompt(q domain.Query, keywords []string) string {
	kw := strings.Join(keywords, ", ")
	if q.Language == domain.LanguageChinese {
		return fmt.Sprintf("简要分析以下查询所属的研究领域及其背景。\n\n查询: %s\n关键词: %s", q.Text, kw)
	}
	return fmt.Sprintf("Briefly analyze the research domain and context of the following query.\n\nQuery: %s\nKeywords: %s", q.Text, kw)
}

func intentAnalysisPrompt(q domain.Query) string {
	if q.Language == domain.LanguageChinese {
		return fmt.Sprintf(
			"深度分析以下查询的研究意图，消除歧义。按如下字段输出：\n"+
				"技术全称:\n研究领域:\n关键概念:\n歧义澄清:\n推荐关键词: (逗号分隔)\n\n查询: %s", q.Text)
	}
	return fmt.Sprintf(
		"Analyze the research intent of the following query and resolve any ambiguity. Answer with these fields:\n"+
			"Full Name:\nDomain:\nKey Concepts:\nDisambiguation:\nRecommended Keywords: (comma-separated)\n\nQuery: %s", q.Text)
}

func classificationPrompt(q domain.Query, papers []*domain.Paper) string {
	var sb strings.Builder
	if q.Language == domain.LanguageChinese {
		fmt.Fprintf(&sb, "从以下论文中选出与查询最相关的论文，输出其编号（逗号分隔）。\n\n查询: %s\n\n", q.Text)
	} else {
		fmt.Fprintf(&sb, "Select the papers most relevant to the query from the list below. Output their numbers, comma-separated.\n\nQuery: %s\n\n", q.Text)
	}
	for i, p := range papers {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, p.Title)
	}
	return sb.String()
}

func summaryPrompt(q domain.Query, p *domain.Paper) string {
	if q.Language == domain.LanguageChinese {
		return fmt.Sprintf("围绕查询 %q 总结以下论文的核心贡献。\n\n标题: %s\n摘要: %s", q.Text, p.Title, p.Abstract)
	}
	return fmt.Sprintf("Summarize the core contribution of the following paper with respect to the query %q.\n\nTitle: %s\nAbstract: %s", q.Text, p.Title, p.Abstract)
}

func clusteringPrompt(q domain.Query, summaries []string) string {
	joined := strings.Join(summaries, "\n---\n")
	if q.Language == domain.LanguageChinese {
		return fmt.Sprintf("将以下论文总结按研究主题聚类，并概述每个主题。\n\n查询: %s\n\n%s", q.Text, joined)
	}
	return fmt.Sprintf("Cluster the following paper summaries into research themes and outline each theme.\n\nQuery: %s\n\n%s", q.Text, joined)
}

func trendAnalysisPrompt(q domain.Query, papers []*domain.Paper) string {
	var sb strings.Builder
	if q.Language == domain.LanguageChinese {
		fmt.Fprintf(&sb, "基于以下论文标题分析该方向的研究趋势。\n\n查询: %s\n\n", q.Text)
	} else {
		fmt.Fprintf(&sb, "Analyze the research trends in this area based on the following paper titles.\n\nQuery: %s\n\n", q.Text)
	}
	for _, p := range papers {
		fmt.Fprintf(&sb, "- %s\n", p.Title)
	}
	return sb.String()
}

func reviewGenerationPrompt(q domain.Query, summaries []string, topics, trends string, papers []*domain.Paper) string {
	var sb strings.Builder
	if q.Language == domain.LanguageChinese {
		fmt.Fprintf(&sb, "基于以下材料撰写一篇结构化的文献综述，包含引言、主题分析、趋势展望与参考文献。\n\n查询: %s\n\n", q.Text)
		fmt.Fprintf(&sb, "主题聚类:\n%s\n\n研究趋势:\n%s\n\n论文总结:\n%s\n\n参考文献:\n", topics, trends, strings.Join(summaries, "\n---\n"))
	} else {
		fmt.Fprintf(&sb, "Write a structured literature review based on the material below, covering introduction, thematic analysis, trends and references.\n\nQuery: %s\n\n", q.Text)
		fmt.Fprintf(&sb, "Topic clusters:\n%s\n\nResearch trends:\n%s\n\nPaper summaries:\n%s\n\nReferences:\n", topics, trends, strings.Join(summaries, "\n---\n"))
	}
	for _, p := range papers {
		fmt.Fprintf(&sb, "- %s\n", p.Title)
	}
	return sb.String()
}
