// Package pipeline diffs freshly computed nightly rates against stored
// restrictions. It performs no I/O.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/pricing/calculator"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
)

// Run returns the restrictions in scope whose rate or base rate would change.
// Rows dated before the property-local today are left alone. Rows of rate plans
// absent from in.Synced are skipped and reported in Result.Unsynced. A disabled
// setting yields an empty result.
func Run(snap *pricingdomain.Snapshot, in domain.Input) (domain.Result, error) {
	var res domain.Result
	if snap == nil || !snap.Setting.Enabled {
		return res, nil
	}

	calc := calculator.New(snap)
	from := pricingdomain.DateOf(in.From)
	if today := pricingdomain.Today(in.Now, snap.Location()); from.Before(today) {
		from = today
	}
	to := pricingdomain.DateOf(in.To)
	if to.Before(from) {
		return res, nil
	}

	roomTypes := make(map[snowflake.ID]struct{}, len(in.RoomTypeIDs))
	for _, id := range in.RoomTypeIDs {
		roomTypes[id] = struct{}{}
	}

	unsynced := make(map[snowflake.ID]struct{})
	for _, row := range in.Restrictions {
		if _, ok := roomTypes[row.RoomTypeID]; !ok {
			continue
		}
		date := pricingdomain.DateOf(row.Date)
		if date.Before(from) || date.After(to) {
			continue
		}
		if _, ok := in.Synced[row.RatePlanID]; !ok {
			unsynced[row.RatePlanID] = struct{}{}
			continue
		}

		base, rate, err := price(calc, row, date, in)
		if err != nil {
			return domain.Result{}, err
		}
		if rate == row.Rate && base == row.BaseRate {
			continue
		}
		res.Changes = append(res.Changes, domain.Change{
			RestrictionID: row.ID,
			RatePlanID:    row.RatePlanID,
			RoomTypeID:    row.RoomTypeID,
			Date:          date,
			Rate:          rate,
			BaseRate:      base,
			PreviousRate:  row.Rate,
			PreviousBase:  row.BaseRate,
		})
	}

	sort.SliceStable(res.Changes, func(i, j int) bool {
		a, b := res.Changes[i], res.Changes[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.RatePlanID < b.RatePlanID
	})
	for id := range unsynced {
		res.Unsynced = append(res.Unsynced, id)
	}
	domain.SortIDs(res.Unsynced)
	return res, nil
}

func price(calc *calculator.Calculator, row domain.RestrictionRow, date time.Time, in domain.Input) (int64, int64, error) {
	base, err := calc.RestrictionBaseRate(row.RatePlanID, date, in.Now)
	if err != nil {
		return 0, 0, fmt.Errorf("base rate for rate plan %s on %s: %w", row.RatePlanID, date.Format(time.DateOnly), err)
	}
	// A base rate discounted to nothing stays free whatever the occupancy.
	if base == 0 {
		return 0, 0, nil
	}
	rate, err := calc.RestrictionRate(date, base, in.Occupancy.Booked(row.RoomTypeID, date), in.Now)
	if err != nil {
		return 0, 0, fmt.Errorf("rate for rate plan %s on %s: %w", row.RatePlanID, date.Format(time.DateOnly), err)
	}
	return base, rate, nil
}
