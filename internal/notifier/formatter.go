package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"RebarForecast/internal/calculator"
	"RebarForecast/internal/model"
)

// DateLayout is the date format used in chat messages.
const DateLayout = "02.01.2006"

// ButtonForecast starts the forecast dialogue.
const ButtonForecast = "Сделать прогноз"

// AutoButton returns the label of the automatic forecast button.
func AutoButton(autoPeriods int) string {
	return fmt.Sprintf("Автопрогноз на %d недель", autoPeriods)
}

// MainKeyboard is shown after /start.
func MainKeyboard(autoPeriods int) Keyboard {
	return Keyboard{{ButtonForecast, AutoButton(autoPeriods)}}
}

// FormatPrice renders a price as whole roubles with space separated thousands.
func FormatPrice(p decimal.Decimal) string {
	return humanize.FormatInteger("# ###.", int(p.IntPart())) + " руб."
}

// FormatWelcome returns the /start greeting.
func FormatWelcome(autoPeriods int) string {
	var b strings.Builder
	b.WriteString("🔮 <b>Бот прогнозирования цен на арматуру</b>\n\n")
	b.WriteString("Выберите действие:\n")
	b.WriteString("• «Сделать прогноз» - ввести свою дату и период\n")
	b.WriteString(fmt.Sprintf("• «Автопрогноз» - прогноз на %d недель от последней известной даты\n\n", autoPeriods))
	b.WriteString("Команды:\n")
	b.WriteString("/price ДД.ММ.ГГГГ - рекомендация на дату\n")
	b.WriteString("/subscribe - еженедельная рассылка прогноза\n")
	b.WriteString("/unsubscribe - отписаться от рассылки")
	return b.String()
}

// FormatAutoForecast formats the automatic forecast from the last known date.
func FormatAutoForecast(series model.ForecastSeries) string {
	header := fmt.Sprintf("📊 <b>Автоматический прогноз на %d недель:</b>", len(series))
	return formatSeries(header, series)
}

// FormatForecast formats a user requested forecast.
func FormatForecast(start time.Time, series model.ForecastSeries) string {
	header := fmt.Sprintf("📊 <b>Прогноз на %d недель с %s:</b>", len(series), start.Format(DateLayout))
	return formatSeries(header, series)
}

// FormatBroadcast formats the scheduled weekly forecast.
func FormatBroadcast(series model.ForecastSeries) string {
	header := fmt.Sprintf("🗓 <b>Еженедельный прогноз</b> | %s", time.Now().Format(DateLayout))
	return formatSeries(header, series)
}

func formatSeries(header string, series model.ForecastSeries) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for _, p := range series {
		b.WriteString(fmt.Sprintf("📅 %s: %s\n", p.Date.Format(DateLayout), FormatPrice(p.PredictedPrice)))
	}
	if low, high, err := calculator.SeriesRange(series); err == nil && len(series) > 1 {
		b.WriteString(fmt.Sprintf("\nДиапазон: %s - %s",
			FormatPrice(decimal.NewFromFloat(low)), FormatPrice(decimal.NewFromFloat(high))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRecommendation formats the forecast point nearest to a queried date.
func FormatRecommendation(query time.Time, point model.ForecastPoint, advice model.Advice) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Прогноз на %s</b>\n\n", query.Format(DateLayout)))
	b.WriteString(fmt.Sprintf("📅 %s: %s\n", point.Date.Format(DateLayout), FormatPrice(point.PredictedPrice)))
	if advice.ReferencePrice > 0 {
		b.WriteString(fmt.Sprintf("Текущая цена: %s (%+.1f%%)\n",
			FormatPrice(decimal.NewFromFloat(advice.ReferencePrice)), advice.ChangePct))
	}
	b.WriteString(fmt.Sprintf("%s Рекомендация: %s", advice.Tier.Emoji, advice.Tier.Label))
	return b.String()
}
