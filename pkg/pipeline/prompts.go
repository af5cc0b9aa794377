package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// The four fixed stages run as a single combined invocation; the generation
// service routes the sub-steps internally. The prompt spells out each stage's
// responsibilities and requires only the final report back.

const teamSystemInstruction = `You are a coordinated investment analysis team.
Work together efficiently to produce comprehensive investment reports.
Be concise to minimize API calls.
Research Agent: Gather essential financial data first.
Sentiment Agent: Provide succinct sentiment insights.
Analysis Agent: Perform focused quantitative assessment.
Report Agent: Deliver polished and professional reports.
Ensure data flows cleanly between agents and avoid duplication.
Return ONLY the final investor-ready report in Markdown.`

const teamPromptTemplate = `Conduct a comprehensive investment analysis for %s (%s).

TEAM COORDINATION INSTRUCTIONS:

1. RESEARCH AGENT
   - Gather current fundamentals and price performance.
   - Summarize recent filings, earnings, and company developments.
   - Capture industry landscape trends, regulatory updates, and competitive positioning.
   - Provide bullet-pointed data that downstream agents can reference.
   - Surface quantitative metrics: revenue/EPS growth (YoY & QoQ), gross/operating margins, FCF, leverage, liquidity, capital allocation moves.
   - Pull market data: price change (1D/1W/1M/YTD), beta, 52-week range, volume trends, short interest if notable.

2. QUANTITATIVE ANALYSIS AGENT
   - Build on the collected data to assess financial health.
   - Provide valuation and growth commentary with explicit metrics (P/E, EV/EBITDA, P/S, PEG, dividend yield, etc.).
   - Include ratio analysis (ROIC, ROE, debt/EBITDA, interest coverage) and compare against industry benchmarks where possible.
   - Document key risks, catalysts, and SWOT elements.
   - Develop scenario analysis (bull/base/bear) with assumption deltas.

3. SENTIMENT AGENT
   - Evaluate news sentiment and analyst outlook.
   - Flag major positive or negative narratives across markets and social media.
   - Highlight short- versus long-term sentiment differentials.
   - Quantify consensus rating distribution, price targets, and notable analyst moves when available.

4. REPORT AGENT
   - Produce the final investor-ready report with sections:
       - Executive Summary with rating (Strong Buy / Buy / Hold / Sell)
       - Company Overview and recent developments
       - Financial Performance (include KPIs table with YoY/QoQ deltas)
       - Technical & Market Analysis (price action, momentum, volatility, support/resistance)
       - Valuation Overview (table of multiples vs industry and vs history)
       - Market & Sentiment Analysis (top news drivers, analyst consensus, social sentiment)
       - Catalysts & Strategic Initiatives
       - Risk Matrix (likelihood vs impact) & Mitigations
       - Scenario Outlook (bull/base/bear with target prices & key drivers)
       - Final Recommendation & Rationale with actionability (entry range, stop-loss, time horizon)
       - Sources / Data provenance notes

COORDINATION REQUIREMENTS:
- Each agent must build upon previous findings and reference them explicitly.
- Avoid redundant re-statements; cite specific figures and sources where possible.
- Provide a cohesive recommendation that integrates qualitative and quantitative inputs.
- DO NOT include meta-discussion, delegations, or coordination logs in the final output.

RETURN FORMAT:
- Only the final Markdown report.
- Start directly with the Executive Summary headline (e.g., "## Executive Summary").
- Use Markdown tables or bullet lists where clarity improves.`

const simpleSystemInstruction = `You are an expert investment analyst.
Provide comprehensive investment analysis reports.
Cover: company overview, financial metrics, market sentiment, risks, and recommendations.
Be thorough but concise.
Use clear, professional language suitable for investors.`

const simplePromptTemplate = `Create a comprehensive investment analysis report for %s (%s).

Your report should include:

1. EXECUTIVE SUMMARY
   - Quick recommendation (Buy/Hold/Sell)
   - Key highlights and concerns
   - Target price if applicable

2. COMPANY OVERVIEW
   - Business description, main products/services, market position, recent developments

3. FINANCIAL ANALYSIS
   - Revenue and earnings trends, profitability metrics (margins, ROE, ROA)
   - Balance sheet health, cash flow analysis, key financial ratios

4. MARKET & SENTIMENT ANALYSIS
   - Recent stock performance, analyst ratings and price targets, news impact

5. GROWTH PROSPECTS
   - Growth drivers, market opportunities, competitive advantages, future outlook

6. RISK ASSESSMENT
   - Business, financial, market, and regulatory/legal risks

7. VALUATION
   - Current valuation metrics (P/E, P/S, P/B, etc.), comparison to industry peers,
     historical valuation trends, fair value assessment

8. INVESTMENT RECOMMENDATION
   - Clear Buy/Hold/Sell recommendation with rationale, investment horizon,
     and key factors to monitor

9. DISCLAIMERS
   - This is for informational purposes only, not financial advice;
     past performance doesn't guarantee future results

Format the report professionally with clear sections and bullet points where appropriate.
Use the current date: %s`

// buildPrompt returns the system instruction and user prompt for a run.
func buildPrompt(mode, ticker, companyName string) (system, prompt string) {
	if companyName == "" {
		companyName = "company name to be determined"
	}

	if mode == "simple" {
		today := time.Now().Format("2006-01-02")
		return simpleSystemInstruction, fmt.Sprintf(simplePromptTemplate, ticker, companyName, today)
	}
	return teamSystemInstruction, fmt.Sprintf(teamPromptTemplate, ticker, companyName)
}

// normalizeTicker upper-cases and trims a subject ticker symbol.
func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
