// Package routine 定义终端客户端可选的交易时段预设：
// 开场白、助手名称以及检查清单中的快捷提问。
package routine

import (
	"sort"
	"strings"
)

// ChecklistItem 是检查清单中的一项及其对应的快捷提问。
type ChecklistItem struct {
	Title  string
	Prompt string
}

// Routine 是一个会话预设。
type Routine struct {
	Name     string
	Persona  string
	Greeting string
	Items    []ChecklistItem
}

// Prompts 返回按清单顺序排列的快捷提问。
func (r Routine) Prompts() []string {
	prompts := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		prompts = append(prompts, item.Prompt)
	}
	return prompts
}

var routines = map[string]Routine{
	"market": {
		Name:     "market",
		Persona:  "Trade Caddie",
		Greeting: "Welcome to Market Central! I'm your Trade Caddie, powered by live AI. The market is open! How can I assist you? We can look for trade ideas, discuss market sentiment, or log your trades.",
		Items: []ChecklistItem{
			{"Review Account Balance & Open Positions", "Caddie, can you give me a quick overview of what to look for when reviewing my account balance and open positions during the market session?"},
			{"Assess Current Market Trend", "Caddie, what are the key indicators for assessing the current market trend right now?"},
			{"Monitor Key Support/Resistance Levels", "Caddie, how should I effectively monitor key support and resistance levels for my watchlist during active trading?"},
			{"Scan for Entry/Exit Signals", "Caddie, what are some common entry and exit signals I should be scanning for based on typical day trading strategies?"},
			{"Manage Active Trades", "Caddie, can you provide some best practices for managing active trades, especially regarding stop-losses and profit-taking?"},
			{"Log New Trades", "Caddie, what are the most crucial details to include when logging a new trade for effective post-market review?"},
			{"Stay Aware of News/Events", "Caddie, what are reliable sources or methods for staying aware of market-moving news and events during the trading day?"},
			{"Maintain Trading Psychology", "Caddie, what are some practical tips for maintaining good trading psychology and avoiding emotional decisions when the market is active?"},
		},
	},
	"postmarket": {
		Name:     "postmarket",
		Persona:  "Trade Caddie (Post-Market)",
		Greeting: "The market is closed! I'm your Trade Caddie. It's time for our Post-Market Debrief. Let's turn today's experiences into tomorrow's edge. You can start with the checklist, discuss a trade, or ask for an overall summary.",
		Items: []ChecklistItem{
			{"Review All Trades Taken Today", "Caddie, let's start reviewing my trades from today. What's the best way to approach this analysis for each trade?"},
			{"Identify Winning/Losing Patterns", "Caddie, help me identify any winning or losing patterns from my trading activity today. What should I look for?"},
			{"Evaluate Performance vs. Trading Plan", "Caddie, how can I objectively evaluate my performance today against my trading plan? What are key questions to ask myself?"},
			{"Update Trade Journal", "Caddie, what are the essential elements I must include in my trade journal for today's trades to make it most effective for learning?"},
			{"Analyze Overall Market Conditions", "Caddie, can you help me summarize the overall market conditions and key themes from today's session?"},
			{"Adjust Holdings (if applicable)", "Caddie, based on today's market close, what factors should I consider when deciding whether to adjust my swing or longer-term holdings?"},
			{"Update Watchlist", "Caddie, what's a good process for updating my watchlist after today's market action? What criteria should I use?"},
			{"Plan for Tomorrow", "Caddie, let's start planning for tomorrow. What are the key things I should focus on based on today's post-market analysis?"},
			{"Continue Learning", "Caddie, can you suggest some learning resources or topics that would be relevant based on my trading activity and the market today?"},
		},
	},
}

// Lookup 按名称（不区分大小写）查找预设。
func Lookup(name string) (Routine, bool) {
	r, ok := routines[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Routine{}, false
	}
	r.Items = append([]ChecklistItem(nil), r.Items...)
	return r, true
}

// Names 返回全部预设名称，按字母排序。
func Names() []string {
	names := make([]string, 0, len(routines))
	for name := range routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
