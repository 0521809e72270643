// Package geo は地理座標に関する計算を提供する。
package geo

import "math"

// earthRadiusKm は地球の平均半径（km）。
const earthRadiusKm = 6371.0

// DistanceKm は2地点間の大圏距離をHaversine公式で計算し、km単位で返す。
// 結果は小数点以下2桁に四捨五入される。
// いずれかの座標がnil、NaN、または範囲外（緯度±90、経度±180）の場合はnilを返す。
func DistanceKm(lat1, lon1, lat2, lon2 *float64) *float64 {
	if !validLat(lat1) || !validLon(lon1) || !validLat(lat2) || !validLon(lon2) {
		return nil
	}

	dLat := toRadians(*lat2 - *lat1)
	dLon := toRadians(*lon2 - *lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(*lat1))*math.Cos(toRadians(*lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	d := roundHalfUp(earthRadiusKm*c, 2)
	return &d
}

func validLat(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && *v >= -90 && *v <= 90
}

func validLon(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && *v >= -180 && *v <= 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// roundHalfUp は指定桁数で四捨五入する。距離は非負なのでFloor(x+0.5)で足りる。
func roundHalfUp(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Floor(v*p+0.5) / p
}
