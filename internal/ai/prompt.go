package ai

import (
	"fmt"
	"strings"
)

func buildModerationPrompt(title, detail, category string, threshold int) string {
	builder := &strings.Builder{}
	builder.WriteString("以下の投稿内容を、明確な基準に基づいて判定してください。\n\n")
	fmt.Fprintf(builder, "タイトル: %s\n", title)
	fmt.Fprintf(builder, "詳細: %s\n", detail)
	fmt.Fprintf(builder, "カテゴリ: %s\n\n", category)

	builder.WriteString("【1. 不適切な投稿（is_inappropriate）】\n")
	builder.WriteString("次のいずれかに該当する場合は true とする:\n")
	builder.WriteString("- 暴力、脅迫、自傷行為の助長\n")
	builder.WriteString("- 差別、侮辱、誹謗中傷\n")
	builder.WriteString("- 露骨な性的内容\n")
	builder.WriteString("- 違法行為の助長（薬物、犯罪、著作権侵害など）\n")
	builder.WriteString("- 個人情報（氏名、住所、電話番号、メール、社員番号など）の記載\n")
	builder.WriteString("- 会社の機密情報（顧客名、売上、内部システム情報など）\n")
	builder.WriteString("- 明らかなスパム（宣伝、無関係なURL、意味のない文字列の羅列）\n")
	builder.WriteString("該当がなければ false とする。\n\n")

	builder.WriteString("【2. 内容が薄い（is_thin_content）】\n")
	fmt.Fprintf(builder, "次のうち %d つ以上に該当する場合に true とする:\n", threshold)
	builder.WriteString("- 「すごい」「いい感じ」など評価語だけで構成されている\n")
	builder.WriteString("- 固有名詞や具体的な名詞が一切ない\n")
	builder.WriteString("- 単語の羅列や意味不明な文字列（例: aaaaa, test, ？？？）\n")
	builder.WriteString("- 同じ単語が3回以上連続して繰り返されている\n")
	builder.WriteString("- タイトルと詳細に明確な関連がない（例: 「会議効率化ツール」に対して詳細が「今日は晴れでした」）\n")
	fmt.Fprintf(builder, "該当が %d つ未満なら false とする。文字数はサーバー側で確認済みなので判定に含めない。\n\n", threshold)

	builder.WriteString("JSONのみで回答してください:\n")
	builder.WriteString(`{"is_inappropriate": true/false, "is_thin_content": true/false, "reason": "判定理由を簡潔に"}`)
	builder.WriteString("\n")
	return builder.String()
}

func buildCategoryPrompt(title, detail string) string {
	builder := &strings.Builder{}
	builder.WriteString("以下の投稿内容に最も適切なカテゴリを1つ選んでください。\n\n")
	fmt.Fprintf(builder, "タイトル: %s\n", title)
	fmt.Fprintf(builder, "詳細: %s\n\n", detail)
	fmt.Fprintf(builder, "選択可能なカテゴリ: %s\n\n", strings.Join(taxonomy, ", "))
	builder.WriteString("JSON形式で回答してください:\n")
	builder.WriteString(`{"category": "上記のいずれか1つ"}`)
	fmt.Fprintf(builder, "\n該当するカテゴリがない場合は \"%s\" を選んでください。\n", CategoryOther)
	return builder.String()
}

func buildFusionPrompt(ideas []IdeaRef, mode ModeInfo, persona Persona, titleLimit, detailLimit int) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "あなたは以下の役割に沿って %d つのアイデアを融合し、新しいアイデアを提案します。\n\n", len(ideas))
	fmt.Fprintf(builder, "【モード】\n%s\n\n", mode.Description)
	fmt.Fprintf(builder, "【ペルソナ】\n考え方: %s\n話し方: %s\n\n", persona.Thinking, persona.Tone)

	builder.WriteString("【元のアイデア】\n")
	for i, idea := range ideas {
		fmt.Fprintf(builder, "アイデア%d\n", i+1)
		fmt.Fprintf(builder, "タイトル: %s\n", idea.Title)
		fmt.Fprintf(builder, "詳細: %s\n", idea.Detail)
		fmt.Fprintf(builder, "カテゴリ: %s\n\n", idea.Category)
	}

	builder.WriteString("【出力要件】\n")
	fmt.Fprintf(builder, "1. タイトル（%d文字以内）\n", titleLimit)
	fmt.Fprintf(builder, "2. 詳細説明（%d文字以内）: ターゲットユーザー、解決する課題、主要機能を含める\n", detailLimit)
	builder.WriteString("3. カテゴリ（1つ）\n\n")
	builder.WriteString("元アイデアの要素を羅列せず、一貫した提案としてまとめること。\n")
	builder.WriteString("ペルソナの考え方と話し方を反映すること。\n\n")

	builder.WriteString("JSON形式で回答してください:\n")
	builder.WriteString(`{"title": "タイトル", "detail": "詳細説明", "category": "カテゴリ"}`)
	fmt.Fprintf(builder, "\n選択可能なカテゴリ: %s\n", strings.Join(taxonomy, ", "))
	fmt.Fprintf(builder, "該当するカテゴリがない場合は \"%s\" を選んでください。\n", CategoryOther)
	return builder.String()
}
