package repository

import "testing"

func TestNormalizePageRequest(t *testing.T) {
	cases := map[string]struct {
		in, want   PageRequest
		wantOffset int
	}{
		"zero value":      {PageRequest{}, PageRequest{Page: DefaultPage, PageSize: DefaultPageSize}, 0},
		"negative page":   {PageRequest{Page: -5, PageSize: 10}, PageRequest{Page: 1, PageSize: 10}, 0},
		"negative size":   {PageRequest{Page: 2, PageSize: -1}, PageRequest{Page: 2, PageSize: DefaultPageSize}, DefaultPageSize},
		"oversized page":  {PageRequest{Page: 3, PageSize: MaxPageSize * 2}, PageRequest{Page: 3, PageSize: MaxPageSize}, 2 * MaxPageSize},
		"already bounded": {PageRequest{Page: 4, PageSize: 25}, PageRequest{Page: 4, PageSize: 25}, 75},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := normalizePageRequest(tc.in)
			if got != tc.want {
				t.Fatalf("normalizePageRequest(%+v) = %+v, want %+v", tc.in, got, tc.want)
			}
			if got.Offset() != tc.wantOffset {
				t.Fatalf("offset = %d, want %d", got.Offset(), tc.wantOffset)
			}
		})
	}
}

func TestCalcTotalPages(t *testing.T) {
	cases := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{5, 0, 0},
		{-1, 20, 0},
		{1, 20, 1},
		{40, 20, 2},
		{41, 20, 3},
	}
	for _, tc := range cases {
		if got := calcTotalPages(tc.total, tc.pageSize); got != tc.want {
			t.Fatalf("calcTotalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}

func FuzzPagination(f *testing.F) {
	f.Add(0, 0, int64(0))
	f.Add(-3, MaxPageSize+1, int64(250))
	f.Add(7, 13, int64(1<<40))

	f.Fuzz(func(t *testing.T, page, pageSize int, total int64) {
		req := normalizePageRequest(PageRequest{Page: page, PageSize: pageSize})
		if req.Page < 1 || req.PageSize < 1 || req.PageSize > MaxPageSize {
			t.Fatalf("request out of bounds: %+v", req)
		}
		if req.Offset() < 0 && req.Page < 1<<20 {
			t.Fatalf("negative offset for %+v", req)
		}
		if normalizePageRequest(req) != req {
			t.Fatalf("normalization must be idempotent: %+v", req)
		}

		pages := calcTotalPages(total, req.PageSize)
		if total <= 0 {
			if pages != 0 {
				t.Fatalf("expected no pages for total=%d, got %d", total, pages)
			}
			return
		}
		if int64(pages-1)*int64(req.PageSize) >= total || int64(pages)*int64(req.PageSize) < total {
			t.Fatalf("pages=%d does not cover total=%d at size %d", pages, total, req.PageSize)
		}
	})
}
