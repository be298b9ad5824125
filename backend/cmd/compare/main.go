// compare 在终端输出员工的计划/实际比对报告（只读，不写入异常表）。
//
//	compare -employee 7 -date 2026-05-04
//	compare -employee 7 -from 2026-05-01 -to 2026-05-07
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/dto"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/database"
)

var (
	configPath = flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	employee   = flag.String("employee", "", "员工 ID")
	date       = flag.String("date", "", "单日 YYYY-MM-DD")
	from       = flag.String("from", "", "起始日期 YYYY-MM-DD")
	to         = flag.String("to", "", "结束日期 YYYY-MM-DD")
	noColor    = flag.Bool("no-color", false, "关闭彩色输出")
)

func main() {
	flag.Parse()
	if *noColor {
		color.NoColor = true
	}

	if err := run(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	db, err := database.NewDB(ctx, &cfg.Database, "error", logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	norm, err := attendance.NewNormalizer(cfg.Attendance.Timezone, attendance.SystemClock())
	if err != nil {
		return err
	}
	comparator := attendance.NewComparator(norm, attendance.ConfigFrom(&cfg.Attendance), logger)
	svc := service.NewComparisonService(repository.NewRepository(db), comparator, cfg.Attendance.MaxRangeDays, logger)

	resp, err := svc.Compare(ctx, &dto.ComparisonRequest{
		EmployeeID: *employee,
		Date:       *date,
		DateFrom:   *from,
		DateTo:     *to,
	})
	if err != nil {
		return err
	}

	render(os.Stdout, resp)
	return nil
}

func render(w io.Writer, resp *dto.ComparisonResponse) {
	bold := color.New(color.Bold)
	grey := color.New(color.FgHiBlack)

	bold.Fprintf(w, "员工 %d  %s → %s\n", resp.EmployeeID, resp.DateFrom, resp.DateTo)

	total := decimal.Zero
	for _, day := range resp.Days {
		total = total.Add(day.WorkedHours)

		fmt.Fprintln(w)
		bold.Fprintf(w, "%s", day.Date)
		grey.Fprintf(w, "  工作 %sh\n", day.WorkedHours.StringFixed(2))

		for _, p := range day.Planned {
			fmt.Fprintf(w, "  计划 #%d %-6s %s-%s\n", p.Index, p.Kind, p.Start, p.End)
		}
		for _, s := range day.Actual {
			fmt.Fprintf(w, "  实际    %s-%s\n", clock(s.Arrival), clock(s.Departure))
		}
		if len(day.Discrepancies) == 0 {
			color.New(color.FgGreen).Fprintln(w, "  无偏差")
			continue
		}
		for _, d := range day.Discrepancies {
			severityColor(d.Severity).Fprintf(w, "  [%s] %s", d.Severity, d.Type)
			if d.PlannedValue != "" || d.ActualValue != "" {
				fmt.Fprintf(w, "  %s → %s (ecart %+d)", dash(d.PlannedValue), dash(d.ActualValue), d.EcartMinutes)
			}
			fmt.Fprintln(w)
			if d.Description != "" {
				grey.Fprintf(w, "      %s\n", d.Description)
			}
		}
	}

	fmt.Fprintln(w)
	bold.Fprintf(w, "合计 %sh\n", total.StringFixed(2))
}

func severityColor(sev string) *color.Color {
	switch attendance.Severity(sev) {
	case attendance.SeverityCritique, attendance.SeverityHaute:
		return color.New(color.FgRed, color.Bold)
	case attendance.SeverityAttention, attendance.SeverityMoyenne, attendance.SeverityHorsPlage:
		return color.New(color.FgYellow)
	case attendance.SeverityAValider:
		return color.New(color.FgMagenta)
	case attendance.SeverityOK:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgBlue)
	}
}

func clock(s *string) string {
	if s == nil {
		return "--:--"
	}
	return *s
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
